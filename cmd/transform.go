package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mabhi256/jshim/internal/bundle"
	"github.com/mabhi256/jshim/internal/config"
	"github.com/mabhi256/jshim/internal/html"
	"github.com/mabhi256/jshim/internal/pipeline"
	"github.com/mabhi256/jshim/internal/tui"
	"github.com/mabhi256/jshim/utils"
)

var (
	transformInputs    []string
	transformLibraries []string
	transformOutput    string
	configPath         string
	transformWorkers   int
	noProgress         bool
	reportPath         string
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Rewrite class directories and jars for the plugin container",
	Example: `  jshim transform -i build/classes -l android.jar -o build/shimmed
  jshim transform -i app.jar -i feature.jar -l android.jar -o out -c jshim.toml`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if len(transformInputs) == 0 {
			return errors.New("at least one --input is required")
		}
		for _, path := range slices.Concat(transformInputs, transformLibraries) {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				return fmt.Errorf("file does not exist: %s", path)
			}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("workers") && cfg.Workers > 0 {
			transformWorkers = cfg.Workers
		}

		report, err := runTransform(cmd, cfg)
		if report == nil {
			return err
		}
		printReport(cmd.OutOrStdout(), report)

		if reportPath != "" {
			path, reportErr := html.GenerateReport(report, transformInputs, reportPath)
			if reportErr != nil {
				return errors.Join(err, reportErr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), utils.MutedStyle.Render("Report written to "+path))
		}
		return err
	},
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.FindAndLoad(".")
}

func runTransform(cmd *cobra.Command, cfg *config.Config) (*pipeline.Report, error) {
	rules, err := cfg.Rules()
	if err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	special, err := cfg.SpecialCases()
	if err != nil {
		return nil, fmt.Errorf("invalid special cases: %w", err)
	}

	opts := pipeline.Options{Rules: rules, Special: special, Workers: transformWorkers}
	var bar *tui.Progress
	if showProgress() {
		bar = tui.NewProgress(cmd.Context(), cmd.OutOrStdout(), "Rewriting classes")
		opts.Progress = bar.Report
	}

	p, err := pipeline.New(opts)
	if err != nil {
		return nil, err
	}

	libraries, err := resolveLibraries(transformLibraries)
	if err != nil {
		return nil, err
	}
	units, err := loadUnits(transformInputs)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	slog.Info("Transform started", "inputs", len(units), "libraries", len(libraries), "output", transformOutput)

	if err := p.Index(libraries, classInputs(units)); err != nil {
		return nil, err
	}

	sinks, err := openSinks(units, transformOutput)
	if err != nil {
		return nil, err
	}

	var report *pipeline.Report
	rewrite := func(ctx context.Context) error {
		var err error
		report, err = p.Rewrite(ctx, classInputs(units))
		return err
	}
	if bar != nil {
		err = bar.Run(rewrite)
	} else {
		err = rewrite(cmd.Context())
	}
	if report != nil {
		report.Duration = time.Since(start)
	}

	var closeErrs []error
	for i, unit := range units {
		if err := unit.CopyResources(sinks[i]); err != nil {
			closeErrs = append(closeErrs, err)
		}
		if err := sinks[i].Close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("closing %s: %w", unit.OutputPath(transformOutput), err))
		}
	}

	slog.Info("Transform finished", "duration", time.Since(start))
	if err != nil && report != nil && len(report.Failed) > 0 {
		err = fmt.Errorf("%s failed", utils.Pluralize(len(report.Failed), "class"))
	}
	return report, errors.Join(append([]error{err}, closeErrs...)...)
}

// showProgress is true for an interactive terminal whose output is not
// shared with the debug log
func showProgress() bool {
	if noProgress || !isatty.IsTerminal(os.Stdout.Fd()) {
		return false
	}
	return !verbose || logFile != ""
}

func resolveLibraries(paths []string) ([]pipeline.Library, error) {
	libraries := make([]pipeline.Library, 0, len(paths))
	for _, path := range paths {
		kind, err := bundle.Classify(path)
		if err != nil {
			return nil, fmt.Errorf("library %s: %w", path, err)
		}
		libraries = append(libraries, pipeline.Library{Path: path, Kind: kind})
	}
	return libraries, nil
}

func loadUnits(paths []string) ([]*bundle.Unit, error) {
	var units []*bundle.Unit
	outputs := make(map[string]string)
	for _, path := range paths {
		unit, err := bundle.Load(path)
		if err != nil {
			return nil, err
		}

		out := unit.OutputPath(transformOutput)
		if other, clash := outputs[out]; clash {
			return nil, fmt.Errorf("inputs %s and %s would both be written to %s", other, path, out)
		}
		outputs[out] = path
		units = append(units, unit)
	}
	return units, nil
}

func openSinks(units []*bundle.Unit, root string) ([]bundle.Sink, error) {
	sinks := make([]bundle.Sink, 0, len(units))
	for _, unit := range units {
		sink, err := bundle.OpenSink(unit, root)
		if err != nil {
			for _, s := range sinks {
				s.Close()
			}
			return nil, err
		}
		unit.Attach(sink)
		sinks = append(sinks, sink)
	}
	return sinks, nil
}

func classInputs(units []*bundle.Unit) []pipeline.Input {
	var inputs []pipeline.Input
	for _, unit := range units {
		inputs = append(inputs, unit.Classes...)
	}
	return inputs
}

func printReport(w io.Writer, report *pipeline.Report) {
	const keyWidth = 12

	lines := []string{
		utils.TitleStyle.Render("jshim transform"),
		"",
		utils.FormatKeyValue("Indexed", utils.Pluralize(report.Indexed, "class"), keyWidth),
		utils.FormatKeyValue("Inputs", utils.Pluralize(report.Classes, "class"), keyWidth),
		utils.FormatKeyValue("Rewritten", utils.Pluralize(report.Rewritten, "class"), keyWidth),
		utils.FormatKeyValue("Members", utils.Pluralize(len(report.Members), "class"), keyWidth),
		utils.FormatKeyValue("Special", utils.Pluralize(len(report.Special), "class"), keyWidth),
		utils.FormatKeyValue("Artifacts", utils.Pluralize(report.Artifacts, "file"), keyWidth),
		utils.FormatKeyValue("Duration", utils.FormatDuration(report.Duration), keyWidth),
	}

	status := utils.CreateStatusIndicator(utils.StatusRewritten, "All classes written")
	if len(report.Failed) > 0 {
		status = utils.CreateStatusIndicator(utils.StatusFailed, utils.Pluralize(len(report.Failed), "class")+" failed")
	}
	lines = append(lines, "", status)

	fmt.Fprintln(w, utils.BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))

	sections := []string{
		utils.RenderList("Hierarchy members", report.Members, 20),
		utils.RenderList("Special cases", report.Special, 20),
		utils.RenderList("Missing superclasses", report.Unresolved, 20),
	}
	for _, section := range sections {
		if section != "" {
			fmt.Fprintln(w, section)
		}
	}

	if len(report.Failed) > 0 {
		failures := make([]string, len(report.Failed))
		for i, f := range report.Failed {
			failures[i] = utils.TruncateString(f.Error(), 160)
		}
		fmt.Fprintln(w, utils.ErrorStyle.Render(strings.Join(failures, "\n")))
	}
}

func init() {
	rootCmd.AddCommand(transformCmd)

	transformCmd.Flags().StringArrayVarP(&transformInputs, "input", "i", nil, "Class directory or jar to rewrite (repeatable)")
	transformCmd.Flags().StringArrayVarP(&transformLibraries, "library", "l", nil, "Class directory or jar consulted for superclasses only (repeatable)")
	transformCmd.Flags().StringVarP(&transformOutput, "output", "o", "", "Output directory")
	transformCmd.Flags().StringVarP(&configPath, "config", "c", "", "Rule configuration file (default: nearest jshim.toml)")
	transformCmd.Flags().IntVarP(&transformWorkers, "workers", "w", 0, "Parallel rewrite workers (default: number of CPUs)")
	transformCmd.Flags().StringVar(&reportPath, "report", "", "Write a run report (.html or .json)")
	transformCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	transformCmd.MarkFlagRequired("output")

	archives := utils.CompleteFilesByExtension(".jar", ".zip", ".apk")
	transformCmd.RegisterFlagCompletionFunc("input", archives)
	transformCmd.RegisterFlagCompletionFunc("library", archives)
	transformCmd.RegisterFlagCompletionFunc("config", utils.CompleteFilesByExtension(".toml"))
}
