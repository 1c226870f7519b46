package storage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/cellsim/internal/dynamo"
)

func testResult() *dynamo.Result {
	return &dynamo.Result{
		Records: []dynamo.Record{
			{Time: 1, Current: 2, Voltage: 3.9, VMeas: 3.91, Residual: 0.01, SOC: 0.99, RBase: 0.202, TempK: 298.2},
			{Time: 2, Current: 2, Voltage: 3.89, VMeas: math.NaN(), Residual: math.NaN(), SOC: 0.98, RBase: 0.202, TempK: 298.3},
		},
		Metrics:    map[string]float64{"voltage_rmse": 0.01},
		StepsTaken: 2,
		Skipped:    1,
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.Init())

	id, err := s.Save(RunMetadata{Kind: "estimate", Dt: 1, Duration: 2, Integrator: "substep-euler"}, testResult())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	meta, err := s.Load(id)
	require.NoError(t, err)
	assert.Equal(t, "estimate", meta.Kind)
	assert.Equal(t, 2, meta.Steps)
	assert.Equal(t, 1, meta.Skipped)
	assert.InDelta(t, 0.01, meta.Metrics["voltage_rmse"], 1e-12)

	records, err := s.LoadRecords(id)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.InDelta(t, 3.91, records[0].VMeas, 1e-9)
	assert.True(t, math.IsNaN(records[1].VMeas), "missing cells must come back as NaN")
	assert.True(t, math.IsNaN(records[1].Residual))
	assert.InDelta(t, 0.98, records[1].SOC, 1e-9)
}

func TestListSkipsForeignEntries(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Init())

	_, err := s.Save(RunMetadata{Kind: "simulate"}, testResult())
	require.NoError(t, err)
	_, err = s.Save(RunMetadata{Kind: "estimate"}, testResult())
	require.NoError(t, err)

	runs, err := s.List()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestListEmptyOnMissingDir(t *testing.T) {
	s := New(t.TempDir() + "/nope")
	runs, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestLoadUnknownRun(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.Init())
	_, err := s.Load("missing_run")
	assert.Error(t, err)
}
