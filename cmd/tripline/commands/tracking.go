package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/tripline/sym"
	"github.com/teranos/tripline/tracking"
)

// ExperimentsCmd lists experiments
var ExperimentsCmd = &cobra.Command{
	Use:   "experiments",
	Short: sym.DB + " List experiments",
	RunE:  runExperiments,
}

// RunsCmd lists runs of one experiment
var RunsCmd = &cobra.Command{
	Use:   "runs [experiment]",
	Short: sym.DB + " List runs of an experiment, newest first",
	Long: sym.DB + ` runs — List runs with their status, params and metrics

The experiment defaults to tracking.experiment_name.

Examples:
  tripline runs
  tripline runs taxi-duration-prediction --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

// ModelsCmd lists registered model versions
var ModelsCmd = &cobra.Command{
	Use:   "models [name]",
	Short: sym.Register + " List registered model versions",
	Long: sym.Register + ` models — List model versions, newest first

Without a name every registered model is listed. --show prints the stored
descriptor of one version.

Examples:
  tripline models
  tripline models taxi-duration-model --show 3`,
	Args: cobra.MaximumNArgs(1),
	RunE: runModels,
}

var (
	jsonOutputFlag bool
	showVersion    int
)

func init() {
	for _, c := range []*cobra.Command{ExperimentsCmd, RunsCmd, ModelsCmd} {
		c.Flags().BoolVarP(&jsonOutputFlag, "json", "j", false, "Output as JSON")
	}
	ModelsCmd.Flags().IntVar(&showVersion, "show", 0, "Print the descriptor of this version")
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func runExperiments(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	database, store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	experiments, err := store.ListExperiments()
	if err != nil {
		return err
	}
	if jsonOutputFlag {
		return writeJSON(cmd.OutOrStdout(), experiments)
	}
	if len(experiments) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No experiments yet")
		return nil
	}

	data := pterm.TableData{{"ID", "NAME", "CREATED"}}
	for _, e := range experiments {
		data = append(data, []string{strconv.FormatInt(e.ID, 10), e.Name, formatTime(e.CreatedAt)})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
}

// runView is a run with its params and metrics, as printed by `runs`
type runView struct {
	tracking.Run
	Params  map[string]string  `json:"params"`
	Metrics map[string]float64 `json:"metrics"`
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	name := cfg.Tracking.ExperimentName
	if len(args) == 1 {
		name = args[0]
	}

	database, store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	exp, err := store.GetExperimentByName(name)
	if err != nil {
		return err
	}
	runs, err := store.ListRuns(exp.ID)
	if err != nil {
		return err
	}

	views := make([]runView, 0, len(runs))
	for _, r := range runs {
		params, err := store.RunParams(r.ID)
		if err != nil {
			return err
		}
		metrics, err := store.RunMetrics(r.ID)
		if err != nil {
			return err
		}
		views = append(views, runView{Run: r, Params: params, Metrics: metrics})
	}

	if jsonOutputFlag {
		return writeJSON(cmd.OutOrStdout(), views)
	}
	if len(views) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No runs in experiment %s\n", name)
		return nil
	}

	data := pterm.TableData{{"RUN", "STATUS", "STARTED", "METRICS"}}
	for _, v := range views {
		data = append(data, []string{v.ID, string(v.Status), formatTime(v.StartedAt), formatMetrics(v.Metrics)})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
}

func formatMetrics(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%.4f", k, m[k])
	}
	return out
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	var name string
	if len(args) == 1 {
		name = args[0]
	}

	database, store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if showVersion > 0 {
		if name == "" {
			name = cfg.Tracking.ModelName
		}
		mv, err := store.GetModelVersion(name, showVersion)
		if err != nil {
			return err
		}
		if jsonOutputFlag {
			return writeJSON(cmd.OutOrStdout(), mv)
		}
		fmt.Fprint(cmd.OutOrStdout(), mv.Descriptor)
		return nil
	}

	versions, err := store.ListModelVersions(name)
	if err != nil {
		return err
	}
	if jsonOutputFlag {
		return writeJSON(cmd.OutOrStdout(), versions)
	}
	if len(versions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No registered models yet")
		return nil
	}

	data := pterm.TableData{{"MODEL", "VERSION", "RUN", "SIZE", "CREATED"}}
	for _, v := range versions {
		data = append(data, []string{
			v.ModelName,
			strconv.Itoa(v.Version),
			v.RunID,
			fmt.Sprintf("%d bytes", v.ArtifactSize),
			formatTime(v.CreatedAt),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
}
