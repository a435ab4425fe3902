package swarmfitness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	output     string
	exitStatus int
	err        error
}

func (f fakeExecutor) ExecuteCapture(_ context.Context, _ string) (string, int, error) {
	return f.output, f.exitStatus, f.err
}

func TestParseCPUPercentClampsToRange(t *testing.T) {
	n, err := ParseCPUPercent(" 137 \n")
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	n, err = ParseCPUPercent("-40")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFormulaMonotonicInCPU(t *testing.T) {
	lowCPU := Formula(10, 50)
	highCPU := Formula(90, 50)
	assert.Greater(t, lowCPU, highCPU)
}

func TestFormulaMonotonicInLatency(t *testing.T) {
	lowLatency := Formula(50, 1)
	highLatency := Formula(50, 500)
	assert.Greater(t, lowLatency, highLatency)
}

func TestFormulaUnavailableIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Formula(Unavailable, 0))
}

func TestSampleUnavailableWhenExecutorNil(t *testing.T) {
	cpu, err := Sample(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, Unavailable, cpu)
}

func TestMeasureComposesCPUAndLatency(t *testing.T) {
	exec := fakeExecutor{output: "42", exitStatus: 0}
	cpu, _, fitness, err := Measure(context.Background(), exec, 0)
	require.NoError(t, err)
	assert.Equal(t, 42, cpu)
	assert.Greater(t, fitness, 0.0)
}

func TestMeasureNonZeroExitIsUnavailable(t *testing.T) {
	exec := fakeExecutor{output: "", exitStatus: 1}
	cpu, _, fitness, err := Measure(context.Background(), exec, 0)
	require.NoError(t, err)
	assert.Equal(t, Unavailable, cpu)
	assert.Equal(t, 0.0, fitness)
}
