package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenariosGolden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario files found")

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			RunWithGolden(t, path)
		})
	}
}

func TestLoadScenarioRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "typo.yaml")
	writeFile(t, path, `
name: typo
cards: []
rules: []
steps:
  - chat_id: c1
    item_id: i1
    message: hi
assertion:
  - state: fulfilled
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertion")
}

func TestLoadScenarioValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "steps:\n  - chat_id: c1\n    message: hi\n",
			want: "name is required",
		},
		{
			name: "no steps",
			yaml: "name: empty\n",
			want: "at least one step",
		},
		{
			name: "step with both event and message",
			yaml: "name: both\nsteps:\n  - chat_id: c1\n    message: hi\n    event:\n      k: v\n",
			want: "exactly one of event and message",
		},
		{
			name: "rule references unknown card",
			yaml: "name: dangling\nrules:\n  - keyword: k\n    card: nope\nsteps:\n  - chat_id: c1\n    message: hi\n",
			want: "unknown card",
		},
		{
			name: "expect count mismatch",
			yaml: "name: mismatch\nsteps:\n  - chat_id: c1\n    message: hi\nexpect:\n  - state: skipped\n  - state: skipped\n",
			want: "expect has 2 entries for 1 steps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scenario.yaml")
			writeFile(t, path, tt.yaml)

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunReportsExpectationFailures(t *testing.T) {
	sc := &Scenario{
		Name: "wrong-expectation",
		Steps: []Step{
			{ChatID: "c1", ItemID: "i1", Message: "在吗"},
		},
		Expect: []Expectation{
			{State: "fulfilled"},
		},
	}
	require.NoError(t, sc.validate())

	result, err := Run(sc, filepath.Join(t.TempDir(), "scenario.db"))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `state = "skipped", want "fulfilled"`)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
