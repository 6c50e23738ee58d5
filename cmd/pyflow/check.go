package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pyflow/internal/diag"
	"pyflow/internal/diagfmt"
	"pyflow/internal/driver"
	"pyflow/internal/observ"
	"pyflow/internal/sema"
	"pyflow/internal/source"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <doc.json|directory>",
	Short: "Analyze parser documents for binding and type-flow issues",
	Long:  `Analyze a single parser document or every *.json document within a directory`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	checkCmd.Flags().Int("jobs", 0, "max parallel workers for directory processing (0=auto)")
	checkCmd.Flags().Bool("strict-builtins", false, "warn on calls to unmodeled builtin names")
	checkCmd.Flags().Bool("no-bool-as-int", false, "reject bool arguments to numeric builtins")
	checkCmd.Flags().Int("stmt-budget", 0, "max statements to analyze per file (0=unlimited)")
	checkCmd.Flags().String("ui", "auto", "progress UI for directories (auto|on|off)")
	checkCmd.Flags().Bool("disk-cache", false, "enable the persistent per-document result cache")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("no-warnings", false, "ignore warnings in diagnostics")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
}

func runCheck(cmd *cobra.Command, args []string) error {
	path := args[0]

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown format value: %s", format)
	}

	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	strictBuiltins, err := cmd.Flags().GetBool("strict-builtins")
	if err != nil {
		return fmt.Errorf("failed to get strict-builtins flag: %w", err)
	}
	noBoolAsInt, err := cmd.Flags().GetBool("no-bool-as-int")
	if err != nil {
		return fmt.Errorf("failed to get no-bool-as-int flag: %w", err)
	}
	stmtBudget, err := cmd.Flags().GetInt("stmt-budget")
	if err != nil {
		return fmt.Errorf("failed to get stmt-budget flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	enableDiskCache, err := cmd.Flags().GetBool("disk-cache")
	if err != nil {
		return fmt.Errorf("failed to get disk-cache flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	noWarnings, err := cmd.Flags().GetBool("no-warnings")
	if err != nil {
		return fmt.Errorf("failed to get no-warnings flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	uiMode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}

	cleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	timer := observ.NewTimer()

	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}

	startDir := path
	if !st.IsDir() {
		startDir = filepath.Dir(path)
	}
	fileCfg, err := loadFileConfig(startDir)
	if err != nil {
		return err
	}

	// Flags given explicitly win over pyflow.toml.
	semaOpts := sema.DefaultOptions()
	semaOpts.StrictUnknownBuiltins = fileCfg.Analysis.StrictUnknownBuiltins
	if fileCfg.Analysis.TreatBoolAsInt != nil {
		semaOpts.TreatBoolAsInt = *fileCfg.Analysis.TreatBoolAsInt
	}
	semaOpts.StmtBudget = fileCfg.Analysis.StmtBudget
	if cmd.Flags().Changed("strict-builtins") {
		semaOpts.StrictUnknownBuiltins = strictBuiltins
	}
	if cmd.Flags().Changed("no-bool-as-int") {
		semaOpts.TreatBoolAsInt = !noBoolAsInt
	}
	if cmd.Flags().Changed("stmt-budget") {
		semaOpts.StmtBudget = stmtBudget
	}
	if !cmd.Root().PersistentFlags().Changed("max-diagnostics") && fileCfg.Output.MaxDiagnostics > 0 {
		maxDiagnostics = fileCfg.Output.MaxDiagnostics
	}
	if !cmd.Flags().Changed("format") && fileCfg.Output.Format != "" {
		format = fileCfg.Output.Format
	}
	if !cmd.Flags().Changed("jobs") && fileCfg.Analysis.Jobs > 0 {
		jobs = fileCfg.Analysis.Jobs
	}

	cfg := driver.Config{
		MaxDiagnostics: maxDiagnostics,
		Sema:           semaOpts,
	}
	if enableDiskCache {
		cache, err := driver.OpenDiskCache("pyflow")
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: disk cache disabled: %v\n", err)
		} else {
			cfg.Cache = cache
		}
	}

	var (
		files   *source.FileSet
		results []driver.FileResult
	)
	analyzePhase := timer.Begin("analyze")
	if st.IsDir() {
		useTUI := shouldUseTUI(uiMode) && format == "pretty" && !quiet
		if useTUI {
			files, results, err = runCheckDirWithUI(cmd.Context(), path, cfg, jobs)
		} else {
			files, results, err = driver.AnalyzeDir(cmd.Context(), path, cfg, jobs, nil)
		}
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}
	} else {
		files = source.NewFileSet()
		results = []driver.FileResult{driver.AnalyzeFile(path, files, cfg)}
	}
	timer.End(analyzePhase, fmt.Sprintf("%d file(s)", len(results)))

	merged := diag.NewBag(maxDiagnostics)
	truncated := false
	for _, r := range results {
		merged.Merge(r.Bag)
		truncated = truncated || r.Truncated
	}
	if noWarnings {
		merged.DropWarnings()
	}
	merged.Sort()

	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	renderPhase := timer.Begin("render")
	switch format {
	case "json":
		err = diagfmt.JSON(os.Stdout, merged, files, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     withNotes,
		})
		if err != nil {
			return fmt.Errorf("failed to encode diagnostics: %w", err)
		}
	default:
		diagfmt.Pretty(os.Stdout, merged, files, diagfmt.PrettyOpts{
			Color:     !quiet,
			PathMode:  pathMode,
			ShowNotes: withNotes,
		})
		if !quiet {
			printSummary(os.Stdout, merged, len(results), truncated)
		}
	}
	timer.End(renderPhase, format)

	if showTimings {
		fmt.Fprint(os.Stderr, timer.Summary())
	}

	if merged.HasErrors() {
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("found %d problem(s)", merged.Len())
	}
	return nil
}

func printSummary(w *os.File, bag *diag.Bag, fileCount int, truncated bool) {
	errs, warns := 0, 0
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	fmt.Fprintf(w, "%d file(s) checked: %d error(s), %d warning(s)\n", fileCount, errs, warns)
	if truncated {
		fmt.Fprintf(w, "note: analysis truncated by statement budget\n")
	}
}
