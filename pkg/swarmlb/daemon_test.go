package swarmlb

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestServer(hosts []string, scores []int64) *Server {
	s := &Server{hosts: hosts, fitness: make([]atomic.Int64, len(hosts))}
	for i, score := range scores {
		s.fitness[i].Store(score)
	}
	return s
}

func TestArgmaxFitnessStrictlyGreaterWins(t *testing.T) {
	s := newTestServer([]string{"a", "b", "c"}, []int64{200, 900, 500})
	assert.Equal(t, 1, s.argmaxFitness())
}

func TestArgmaxFitnessTiesKeepLowestIndex(t *testing.T) {
	s := newTestServer([]string{"a", "b", "c"}, []int64{500, 500, 500})
	assert.Equal(t, 0, s.argmaxFitness())
}

func TestArgmaxFitnessAllZeroReturnsFirstHost(t *testing.T) {
	s := newTestServer([]string{"a", "b", "c"}, []int64{0, 0, 0})
	assert.Equal(t, 0, s.argmaxFitness())
	assert.Equal(t, "a", s.hosts[s.argmaxFitness()])
}

func TestFitnessScaleRoundTrips(t *testing.T) {
	fitness := 0.9
	scaled := int64(fitness * FitnessScale)
	assert.Equal(t, int64(900), scaled)
}
