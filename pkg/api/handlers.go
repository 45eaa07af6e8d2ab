package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/james-see/tonseq/pkg/event"
	"github.com/james-see/tonseq/pkg/export"
	"github.com/james-see/tonseq/pkg/notation"
	"github.com/james-see/tonseq/pkg/scale"
	"github.com/james-see/tonseq/pkg/sequence"
	"github.com/james-see/tonseq/pkg/tonnetz"
)

// TransformStep names one transformation and its argument
type TransformStep struct {
	Name string `json:"name" binding:"required" example:"triadTonnetz"`
	Arg  string `json:"arg" example:"p"`
}

// PatternRequest describes a pattern to evaluate
type PatternRequest struct {
	Pattern    string          `json:"pattern" binding:"required" example:"024 246"`
	Key        string          `json:"key,omitempty" example:"C"`
	Scale      string          `json:"scale,omitempty" example:"major"`
	Octave     *int            `json:"octave,omitempty"`
	Duration   float64         `json:"duration,omitempty"`
	Inversion  *int            `json:"inversion,omitempty"`
	Retrograde bool            `json:"retrograde,omitempty"`
	Space      []int           `json:"space,omitempty"`
	Transforms []TransformStep `json:"transforms,omitempty"`
}

// TransformRequest is a bare chord transformation
type TransformRequest struct {
	Chord []int  `json:"chord" binding:"required" example:"0,4,7"`
	Ops   string `json:"ops" binding:"required" example:"p"`
	Space []int  `json:"space,omitempty"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Position *int   `json:"position,omitempty"`
}

func (s *Server) spaceOf(steps []int) (tonnetz.Space, error) {
	if len(steps) == 0 {
		return s.space, nil
	}
	if len(steps) != 3 {
		return tonnetz.Space{}, fmt.Errorf("space needs three steps, got %v", steps)
	}
	sp := tonnetz.Space{Minor: steps[0], Major: steps[1], Fourth: steps[2]}
	return sp, sp.Validate()
}

func parseSpace(q string) ([]int, error) {
	if q == "" {
		return nil, nil
	}
	parts := strings.Split(q, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad space %q", q)
		}
		out[i] = n
	}
	return out, nil
}

// build returns a private engine for the request. The cached engine is
// cloned before any transformation touches it.
func (s *Server) build(req PatternRequest) (*sequence.Engine, error) {
	opts := s.defaults
	if req.Key != "" {
		opts.Key = req.Key
	}
	if req.Scale != "" {
		opts.Scale = req.Scale
	}
	if req.Octave != nil {
		opts.Octave = *req.Octave
	}
	if req.Duration > 0 {
		opts.Duration = req.Duration
	}
	if req.Inversion != nil {
		opts.Inversion = *req.Inversion
	}
	opts.Retrograde = req.Retrograde

	space, err := s.spaceOf(req.Space)
	if err != nil {
		return nil, err
	}

	e := s.cache.GetOrCompute(req.Pattern, opts).Clone()
	if err := e.Err(); err != nil {
		return nil, err
	}
	for _, t := range req.Transforms {
		if err := e.Apply(t.Name, t.Arg, space).Err(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (s *Server) fail(c *gin.Context, err error) {
	resp := ErrorResponse{Error: err.Error()}
	status := http.StatusBadRequest

	var pe *notation.ParseError
	var te *tonnetz.Error
	switch {
	case errors.As(err, &pe):
		status = http.StatusUnprocessableEntity
		resp.Code = "PARSE_ERROR"
		pos := pe.Pos
		resp.Position = &pos
	case errors.As(err, &te):
		resp.Code = string(te.Code)
	case errors.Is(err, sequence.ErrUnknownTransformation):
		resp.Code = "UNKNOWN_TRANSFORMATION"
	case errors.Is(err, scale.ErrUnknownKey), errors.Is(err, scale.ErrUnknownScale):
		resp.Code = "INVALID_OPTION"
	}
	s.logger.Debug("request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(status, resp)
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "tonseq",
	})
}

// listScales godoc
// @Summary List named scales
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/scales [get]
func listScales(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"scales": scale.Names()})
}

// listTransformations godoc
// @Summary List transformation names
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/transformations [get]
func listTransformations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"transformations": sequence.Transformations,
		"operators":       strings.Split(tonnetz.Letters, ""),
	})
}

// handleEvaluate godoc
// @Summary Evaluate a pattern
// @Description Evaluates a pattern, applies the listed transformations in order and returns the events
// @Tags pattern
// @Accept json
// @Produce json
// @Param request body PatternRequest true "Pattern"
// @Success 200 {object} export.SequenceJSON
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/pattern/evaluate [post]
func (s *Server) handleEvaluate(c *gin.Context) {
	var req PatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	e, err := s.build(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, export.Encode(e.Text(), e.Events()))
}

// handleMIDI godoc
// @Summary Render a pattern as MIDI
// @Tags pattern
// @Accept json
// @Produce audio/midi
// @Param request body PatternRequest true "Pattern"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/pattern/midi [post]
func (s *Server) handleMIDI(c *gin.Context) {
	var req PatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	e, err := s.build(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	data, err := s.exporter.MIDI(s.exporter.Build(e.Text(), e.Events()))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=pattern.mid")
	c.Data(http.StatusOK, "audio/midi", data)
}

// handleTransform godoc
// @Summary Transform a chord
// @Description Applies Tonnetz operators to pitch classes
// @Tags tonnetz
// @Accept json
// @Produce json
// @Param request body TransformRequest true "Chord and operators"
// @Success 200 {object} map[string][]int
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/tonnetz/transform [post]
func (s *Server) handleTransform(c *gin.Context) {
	var req TransformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	space, err := s.spaceOf(req.Space)
	if err != nil {
		s.fail(c, err)
		return
	}
	out, err := tonnetz.Transform(req.Chord, req.Ops, space)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chord": out})
}

// handleCycle godoc
// @Summary Generate a cycle
// @Tags tonnetz
// @Produce json
// @Param kind query string true "hexatonic, octatonic or ennea"
// @Param root query int false "Root pitch class"
// @Param space query string false "Space as minor,major,fourth"
// @Success 200 {object} map[string][][]int
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/tonnetz/cycle [get]
func (s *Server) handleCycle(c *gin.Context) {
	kind, err := tonnetz.ParseCycleKind(c.Query("kind"))
	if err != nil {
		s.fail(c, err)
		return
	}
	root, err := strconv.Atoi(c.DefaultQuery("root", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "root must be an integer"})
		return
	}
	steps, err := parseSpace(c.Query("space"))
	if err != nil {
		s.fail(c, err)
		return
	}
	space, err := s.spaceOf(steps)
	if err != nil {
		s.fail(c, err)
		return
	}
	chords, err := tonnetz.Cycle(root, kind, space)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "chords": chords})
}

// handleCreateSession godoc
// @Summary Start a playback session
// @Description Evaluates a pattern into a private engine whose cursor advances with each next call
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body PatternRequest true "Pattern"
// @Success 201 {object} map[string]any
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/sessions [post]
func (s *Server) handleCreateSession(c *gin.Context) {
	var req PatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	e, err := s.build(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	id := s.addSession(e)
	s.logger.Info("session created", "id", id, "pattern", e.Text())
	c.JSON(http.StatusCreated, gin.H{
		"id":       id,
		"length":   e.Len(),
		"duration": e.Duration(),
	})
}

func (s *Server) sessionFromPath(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}

// handleSessionNext godoc
// @Summary Next event of a session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/next [get]
func (s *Server) handleSessionNext(c *gin.Context) {
	id, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	sess, ok := s.session(id)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}

	sess.mu.Lock()
	ev, ok := sess.engine.Next()
	counter := sess.engine.Counter()
	sess.mu.Unlock()
	if !ok {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "pattern has no events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"counter": counter,
		"event":   export.Encode("", []event.Event{ev}).Events[0],
	})
}

// handleDeleteSession godoc
// @Summary End a session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/sessions/{id} [delete]
func (s *Server) handleDeleteSession(c *gin.Context) {
	id, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	if !s.dropSession(id) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
