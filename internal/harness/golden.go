package harness

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// Snapshot is the golden file payload for one scenario run.
type Snapshot struct {
	Scenario string       `json:"scenario"`
	Trace    []TraceEvent `json:"trace"`
}

// RunWithGolden loads a scenario file, runs it against a scratch database,
// asserts its explicit expectations, and compares the outcome trace against
// testdata/golden/<name>.golden.
//
// Regenerate golden files with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenarioPath string) {
	t.Helper()

	scenario, err := LoadScenario(scenarioPath)
	require.NoError(t, err)

	result, err := Run(scenario, filepath.Join(t.TempDir(), "scenario.db"))
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.True(t, result.Pass)

	data, err := json.MarshalIndent(Snapshot{
		Scenario: scenario.Name,
		Trace:    result.Trace,
	}, "", "  ")
	require.NoError(t, err)
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
}
