package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/tripline/am"
)

const tripsCSV = `VendorID,tpep_pickup_datetime,tpep_dropoff_datetime,trip_distance,PULocationID,DOLocationID
1,2023-03-01 00:06:43,2023-03-01 00:16:43,2.5,161,236
2,2023-03-01 00:08:25,2023-03-01 00:39:30,1.8,43,151
1,2023-03-01 01:00:00,2023-03-01 01:12:00,3.2,79,145
`

// writeProject creates a trips file and a tripline.toml pointing at it
func writeProject(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	source := filepath.Join(dir, "trips.csv")
	require.NoError(t, os.WriteFile(source, []byte(tripsCSV), 0644))

	cfg := fmt.Sprintf(`[source]
path = %q

[tracking]
database_path = %q
%s`, source, filepath.Join(dir, "tripline.db"), extra)
	path := filepath.Join(dir, am.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}

// execute runs one command under a fresh root carrying the global flags
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "tripline", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().CountP("verbose", "v", "")
	root.PersistentFlags().String("config", "", "")
	root.AddCommand(RunCmd, ModelsCmd, RunsCmd, ExperimentsCmd, PredictCmd, AmCmd, VersionCmd)

	// Package-level flag vars persist between executions
	t.Cleanup(func() {
		runSourceFlag, runSampleCapFlag, runSeedFlag, runProgressFlag = "", -1, 0, "cli"
		runDBFlag, runExperiment = "", ""
		jsonOutputFlag, showVersion = false, 0
		predictVersionFlag, predictModelFlag = 0, ""
		configFormat = "toml"
		for _, c := range []*cobra.Command{RunCmd, ModelsCmd, RunsCmd, ExperimentsCmd, PredictCmd} {
			c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
		}
	})

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunThenPredict(t *testing.T) {
	cfg := writeProject(t, "")

	_, err := execute(t, "run", "--config", cfg, "--progress", "none")
	require.NoError(t, err)

	out, err := execute(t, "models", "--config", cfg, "--json")
	require.NoError(t, err)
	var versions []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &versions))
	require.Len(t, versions, 1)
	assert.Equal(t, "taxi-duration-model", versions[0]["model_name"])
	assert.Equal(t, float64(1), versions[0]["version"])

	out, err = execute(t, "predict", "161", "236", "2.5", "--config", cfg, "--json")
	require.NoError(t, err)
	var pred map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &pred))
	assert.Equal(t, float64(1), pred["version"])
	assert.Contains(t, pred, "duration_minutes")

	out, err = execute(t, "runs", "--config", cfg, "--json")
	require.NoError(t, err)
	var runs []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "FINISHED", runs[0]["status"])
}

func TestRunExperimentOverride(t *testing.T) {
	cfg := writeProject(t, "")

	_, err := execute(t, "run", "--config", cfg, "--progress", "none", "--experiment", "nightly")
	require.NoError(t, err)

	out, err := execute(t, "runs", "nightly", "--config", cfg, "--json")
	require.NoError(t, err)
	var runs []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	assert.Len(t, runs, 1)

	_, err = execute(t, "runs", "--config", cfg)
	assert.Error(t, err, "default experiment was never created")
}

func TestRunJSONProgress(t *testing.T) {
	cfg := writeProject(t, "")

	out, err := execute(t, "run", "--config", cfg, "--progress", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"type":"stage"`)
	assert.Contains(t, out, `"type":"complete"`)
}

func TestRunMissingSource(t *testing.T) {
	cfg := writeProject(t, "")

	_, err := execute(t, "run", "--config", cfg, "--progress", "none", "--source", filepath.Join(t.TempDir(), "none.csv"))
	require.Error(t, err)
}

func TestPredictWithoutModel(t *testing.T) {
	cfg := writeProject(t, "")

	_, err := execute(t, "predict", "161", "236", "2.5", "--config", cfg)
	require.Error(t, err)
}

func TestPredictBadDistance(t *testing.T) {
	cfg := writeProject(t, "")

	_, err := execute(t, "predict", "161", "236", "far", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid distance")
}

func TestAmShowFormats(t *testing.T) {
	cfg := writeProject(t, "")

	for _, format := range []string{"toml", "json", "yaml"} {
		out, err := execute(t, "am", "show", "--config", cfg, "--format", format)
		require.NoError(t, err, format)
		assert.Contains(t, out, "trips.csv", format)
	}

	_, err := execute(t, "am", "show", "--config", cfg, "--format", "xml")
	assert.Error(t, err)
}

func TestAmValidateRejectsInvertedBounds(t *testing.T) {
	cfg := writeProject(t, "\n[clean]\nmin_duration_minutes = 90.0\nmax_duration_minutes = 60.0\n")

	_, err := execute(t, "am", "validate", "--config", cfg)
	require.Error(t, err)
}

func TestAmWhereListsUnknownKeys(t *testing.T) {
	cfg := writeProject(t, "\n[trian]\nseed = 1\n")

	out, err := execute(t, "am", "where", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, cfg)
	assert.Contains(t, out, "unknown key: trian")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tripline")
}

func TestFormatMetrics(t *testing.T) {
	assert.Equal(t, "intercept=24.7700 training_rmse=1.5000",
		formatMetrics(map[string]float64{"training_rmse": 1.5, "intercept": 24.77}))
	assert.Equal(t, "", formatMetrics(nil))
}
