package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/tonseq/pkg/cache"
	"github.com/james-see/tonseq/pkg/export"
	"github.com/james-see/tonseq/pkg/sequence"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(opts ...Option) (*Server, *cache.Cache, http.Handler) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.New(cache.WithLogger(discard), cache.WithEngineOptions(sequence.WithLogger(discard)))
	opts = append([]Option{WithLogger(discard), WithDefaults(sequence.DefaultOptions())}, opts...)
	s := NewServer(c, opts...)
	return s, c, s.Router()
}

func createSession(t *testing.T, h http.Handler, pattern string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/v1/sessions", PatternRequest{Pattern: pattern})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](t, w)["id"].(string)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthCheck(t *testing.T) {
	_, _, h := newTestServer()
	for _, path := range []string{"/health", "/api/v1/health"} {
		w := do(t, h, http.MethodGet, path, nil)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want %d", path, w.Code, http.StatusOK)
		}
		assert.Equal(t, "healthy", decode[map[string]string](t, w)["status"])
	}
}

func TestEvaluate(t *testing.T) {
	_, c, h := newTestServer()
	w := do(t, h, http.MethodPost, "/api/v1/pattern/evaluate", PatternRequest{
		Pattern:    "024 246",
		Transforms: []TransformStep{{Name: "triadTonnetz", Arg: "l"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[export.SequenceJSON](t, w)
	require.Len(t, got.Events, 2)
	assert.Equal(t, []int{64, 67, 71}, got.Events[0].Notes)
	assert.Equal(t, []int{60, 64, 67}, got.Events[1].Notes)
	assert.Equal(t, 0.5, got.Duration)

	// the cached engine is never transformed
	assert.Equal(t, [][]int{{60, 64, 67}, {62, 65, 69}}, c.GetOrCompute("024 246", sequence.DefaultOptions()).Notes())
}

func TestEvaluateOptions(t *testing.T) {
	_, _, h := newTestServer()
	octave := 1
	w := do(t, h, http.MethodPost, "/api/v1/pattern/evaluate", PatternRequest{
		Pattern:    "0 1 2",
		Key:        "D",
		Octave:     &octave,
		Retrograde: true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[export.SequenceJSON](t, w)
	require.Len(t, got.Events, 3)
	assert.Equal(t, []int{78}, got.Events[0].Notes)
	assert.Equal(t, []int{74}, got.Events[2].Notes)
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name   string
		req    any
		status int
		code   string
	}{
		{"missing pattern", map[string]string{}, http.StatusBadRequest, ""},
		{"parse error", PatternRequest{Pattern: "0 ]"}, http.StatusUnprocessableEntity, "PARSE_ERROR"},
		{"bad operator", PatternRequest{Pattern: "024", Transforms: []TransformStep{{Name: "tonnetz", Arg: "x"}}}, http.StatusBadRequest, "INVALID_OPERATOR"},
		{"bad space", PatternRequest{Pattern: "024", Space: []int{4, 4, 5}}, http.StatusBadRequest, "INVALID_SPACE"},
		{"unknown transformation", PatternRequest{Pattern: "024", Transforms: []TransformStep{{Name: "shuffle"}}}, http.StatusBadRequest, "UNKNOWN_TRANSFORMATION"},
		{"bad key", PatternRequest{Pattern: "0", Key: "H"}, http.StatusBadRequest, "INVALID_OPTION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, h := newTestServer()
			w := do(t, h, http.MethodPost, "/api/v1/pattern/evaluate", tt.req)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			assert.Equal(t, tt.code, decode[ErrorResponse](t, w).Code)
		})
	}
}

func TestEvaluateParseErrorPosition(t *testing.T) {
	_, _, h := newTestServer()
	w := do(t, h, http.MethodPost, "/api/v1/pattern/evaluate", PatternRequest{Pattern: "0 ]"})
	resp := decode[ErrorResponse](t, w)
	require.NotNil(t, resp.Position)
	assert.Equal(t, 2, *resp.Position)
}

func TestTransform(t *testing.T) {
	_, _, h := newTestServer()
	w := do(t, h, http.MethodPost, "/api/v1/tonnetz/transform", TransformRequest{Chord: []int{0, 4, 7}, Ops: "p r, l"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []int{7, 10, 2}, decode[map[string][]int](t, w)["chord"])

	w = do(t, h, http.MethodPost, "/api/v1/tonnetz/transform", TransformRequest{Chord: []int{0, 2, 7}, Ops: "p"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CHORD", decode[ErrorResponse](t, w).Code)
}

func TestCycle(t *testing.T) {
	_, _, h := newTestServer()

	w := do(t, h, http.MethodGet, "/api/v1/tonnetz/cycle?kind=hexa", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[struct {
		Kind   string  `json:"kind"`
		Chords [][]int `json:"chords"`
	}](t, w)
	assert.Equal(t, "hexatonic", got.Kind)
	assert.Equal(t, [][]int{{0, 4, 7}, {0, 3, 7}, {8, 0, 3}, {8, 11, 3}, {4, 8, 11}, {4, 7, 11}}, got.Chords)

	tests := []struct {
		query string
		code  string
	}{
		{"kind=ennea&space=2,5,5", "CYCLE_DID_NOT_CLOSE"},
		{"kind=bogus", "INVALID_OPERATOR"},
		{"kind=hexa&space=3,x,5", ""},
	}
	for _, tt := range tests {
		w := do(t, h, http.MethodGet, "/api/v1/tonnetz/cycle?"+tt.query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, tt.query)
		assert.Equal(t, tt.code, decode[ErrorResponse](t, w).Code, tt.query)
	}
}

func TestSessions(t *testing.T) {
	_, _, h := newTestServer()

	w := do(t, h, http.MethodPost, "/api/v1/sessions", PatternRequest{Pattern: "0 1 2"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		ID     string `json:"id"`
		Length int    `json:"length"`
	}](t, w)
	assert.Equal(t, 3, created.Length)

	other := do(t, h, http.MethodPost, "/api/v1/sessions", PatternRequest{Pattern: "0 1 2"})
	otherID := decode[map[string]any](t, other)["id"].(string)
	assert.NotEqual(t, created.ID, otherID)

	type next struct {
		Counter int              `json:"counter"`
		Event   export.EventJSON `json:"event"`
	}
	for i, want := range []int{60, 62, 64, 60} {
		w := do(t, h, http.MethodGet, "/api/v1/sessions/"+created.ID+"/next", nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := decode[next](t, w)
		assert.Equal(t, i+1, got.Counter)
		assert.Equal(t, []int{want}, got.Event.Notes)
	}

	// sessions advance independently
	w = do(t, h, http.MethodGet, "/api/v1/sessions/"+otherID+"/next", nil)
	assert.Equal(t, 1, decode[next](t, w).Counter)

	w = do(t, h, http.MethodDelete, "/api/v1/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodGet, "/api/v1/sessions/"+created.ID+"/next", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, h, http.MethodDelete, "/api/v1/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, h, http.MethodGet, "/api/v1/sessions/not-a-uuid/next", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s, _, h := newTestServer(WithSessionTTL(time.Minute), WithClock(clock))

	idle := createSession(t, h, "0 1")
	busy := createSession(t, h, "0 1")

	now = now.Add(45 * time.Second)
	w := do(t, h, http.MethodGet, "/api/v1/sessions/"+busy+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code)

	now = now.Add(45 * time.Second)
	w = do(t, h, http.MethodGet, "/api/v1/sessions/"+idle+"/next", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, h, http.MethodGet, "/api/v1/sessions/"+busy+"/next", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// creating a session sweeps the expired ones
	now = now.Add(2 * time.Minute)
	createSession(t, h, "0")
	assert.Equal(t, 1, s.SessionCount())
}

func TestSessionLimit(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	s, _, h := newTestServer(WithMaxSessions(2), WithClock(clock))

	first := createSession(t, h, "0")
	second := createSession(t, h, "1")
	// touching first leaves second as the least recently used
	w := do(t, h, http.MethodGet, "/api/v1/sessions/"+first+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code)

	third := createSession(t, h, "2")
	assert.Equal(t, 2, s.SessionCount())

	tests := []struct {
		id   string
		want int
	}{
		{first, http.StatusOK},
		{second, http.StatusNotFound},
		{third, http.StatusOK},
	}
	for _, tt := range tests {
		if w := do(t, h, http.MethodGet, "/api/v1/sessions/"+tt.id+"/next", nil); w.Code != tt.want {
			t.Errorf("GET next %s = %d, want %d", tt.id, w.Code, tt.want)
		}
	}
}

func TestMIDI(t *testing.T) {
	_, _, h := newTestServer()
	w := do(t, h, http.MethodPost, "/api/v1/pattern/midi", PatternRequest{Pattern: "024 r 0"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "audio/midi", w.Header().Get("Content-Type"))

	sc, err := export.ReadMIDI(w.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, sc.Notes, 4)
}

func TestListings(t *testing.T) {
	_, _, h := newTestServer()
	w := do(t, h, http.MethodGet, "/api/v1/scales", nil)
	assert.Contains(t, decode[map[string][]string](t, w)["scales"], "major")

	w = do(t, h, http.MethodGet, "/api/v1/transformations", nil)
	got := decode[map[string][]string](t, w)
	assert.Contains(t, got["transformations"], "enneaCycle")
	assert.Len(t, got["operators"], 8)
}

func TestCORS(t *testing.T) {
	_, _, h := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/pattern/evaluate", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
