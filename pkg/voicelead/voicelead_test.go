package voicelead

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func pcs(notes []int) map[int]int {
	m := map[int]int{}
	for _, n := range notes {
		m[((n%12)+12)%12]++
	}
	return m
}

func TestLead(t *testing.T) {
	l := New()
	tests := []struct {
		name     string
		from, to []int
		want     []int
	}{
		{"c to f", []int{60, 64, 67}, []int{65, 69, 72}, []int{60, 65, 69}},
		{"c to g", []int{60, 64, 67}, []int{67, 71, 74}, []int{59, 62, 67}},
		{"c to am", []int{60, 64, 67}, []int{69, 72, 76}, []int{60, 64, 69}},
		{"same chord", []int{60, 64, 67}, []int{72, 76, 79}, []int{60, 64, 67}},
		{"unsorted source", []int{67, 60, 64}, []int{65, 69, 72}, []int{60, 65, 69}},
		{"triad to tetrad", []int{60, 64, 67}, []int{67, 71, 74, 77}, []int{59, 62, 65, 67}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.Lead(tt.from, tt.to)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, pcs(tt.to), pcs(got))
		})
	}
}

func TestLeadEmpty(t *testing.T) {
	l := New()
	assert.Equal(t, []int{60}, l.Lead(nil, []int{60}))
	assert.Empty(t, l.Lead([]int{60}, nil))
}

func TestLeadDoesNotMutate(t *testing.T) {
	from := []int{67, 60, 64}
	to := []int{65, 69, 72}
	New().Lead(from, to)
	assert.Equal(t, []int{67, 60, 64}, from)
	assert.Equal(t, []int{65, 69, 72}, to)
}
