package swarmtop

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBestFitnessIndexSkipsUnreachable(t *testing.T) {
	rows := []Row{
		{Hostname: "a", Fitness: 0.9, Reachable: false},
		{Hostname: "b", Fitness: 0.5, Reachable: true},
		{Hostname: "c", Fitness: 0.2, Reachable: true},
	}
	assert.Equal(t, 1, bestFitnessIndex(rows))
}

func TestBestFitnessIndexAllUnreachable(t *testing.T) {
	rows := []Row{
		{Hostname: "a", Fitness: 0.9, Reachable: false},
	}
	assert.Equal(t, -1, bestFitnessIndex(rows))
}

func TestHeaderRepeatsEveryTenRows(t *testing.T) {
	tbl := New()
	var out bytes.Buffer
	tbl.out = &out
	rows := make([]Row, HeaderEvery+1)
	for i := range rows {
		rows[i] = Row{Hostname: "h", Reachable: true}
	}
	tbl.PrintRefresh(rows)
	assert.Equal(t, HeaderEvery+1, tbl.rowsPrinted)
	assert.Equal(t, 2, strings.Count(out.String(), "HOST"))
}
