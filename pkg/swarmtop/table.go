// Package swarmtop renders live fleet telemetry as a color-coded
// table, adapted from the teacher's pkg/terminal (fatih/color
// SprintfFunc-per-color pattern) but purpose-built for repeated
// tabular rows instead of one-off colored messages.
package swarmtop

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// HeaderEvery is how many data rows print before the header repeats,
// matching spec's telemetry viewer behavior.
const HeaderEvery = 10

// Row is one fleet host's telemetry snapshot for a single refresh.
type Row struct {
	Hostname   string
	CPUPercent int
	LatencyMs  int64
	Fitness    float64
	Reachable  bool
}

// Table prints Row values to an io.Writer, coloring unreachable hosts
// red and the best-fitness row of each refresh green.
type Table struct {
	out        io.Writer
	green      func(format string, a ...interface{}) string
	yellow     func(format string, a ...interface{}) string
	red        func(format string, a ...interface{}) string
	rowsPrinted int
}

// New builds a Table writing to stdout.
func New() *Table {
	return &Table{
		out:    os.Stdout,
		green:  color.New(color.FgGreen).SprintfFunc(),
		yellow: color.New(color.FgYellow).SprintfFunc(),
		red:    color.New(color.FgRed).SprintfFunc(),
	}
}

func (t *Table) printHeader() {
	fmt.Fprintf(t.out, "%-24s %8s %10s %10s\n", "HOST", "CPU%", "LATENCY", "FITNESS")
}

// PrintRefresh prints one full refresh pass: rows sorted by the
// caller (typically host order, matching the daemon's index-aligned
// fitness slots), with the header repeated every HeaderEvery rows and
// unconditionally at the start of a refresh.
func (t *Table) PrintRefresh(rows []Row) {
	t.printHeader()
	best := bestFitnessIndex(rows)
	for i, row := range rows {
		if t.rowsPrinted > 0 && t.rowsPrinted%HeaderEvery == 0 {
			t.printHeader()
		}
		t.printRow(row, i == best)
		t.rowsPrinted++
	}
}

func (t *Table) printRow(row Row, isBest bool) {
	line := fmt.Sprintf("%-24s %7d%% %9dms %10.3f", row.Hostname, row.CPUPercent, row.LatencyMs, row.Fitness)
	switch {
	case !row.Reachable:
		fmt.Fprintln(t.out, t.red(line+" (unreachable)"))
	case isBest:
		fmt.Fprintln(t.out, t.green(line+" (best)"))
	default:
		fmt.Fprintln(t.out, t.yellow(line))
	}
}

func bestFitnessIndex(rows []Row) int {
	best := -1
	bestFitness := -1.0
	for i, row := range rows {
		if !row.Reachable {
			continue
		}
		if row.Fitness > bestFitness {
			bestFitness = row.Fitness
			best = i
		}
	}
	return best
}
