package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warp/timesheet-engine/api"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/store/sqlite"
	"github.com/warp/timesheet-engine/timesheet"
)

func ingestCmd() *cobra.Command {
	var (
		teamID    string
		companyID string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Parse and record timesheet files",
		Long: `Parse timesheet exports and record their entries. Directories are
expanded to the supported files they contain. Unreadable files are reported
and skipped; the rest are still recorded.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := expandPaths(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no supported timesheet files found")
			}

			store, err := sqlite.New(viper.GetString("db.path"))
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer store.Close()

			files := lo.Map(paths, func(p string, _ int) timesheet.SourceFile { return timesheet.FileFromPath(p) })

			h := api.NewHandler(store, slog.Default())
			result, err := h.Ingest.Ingest(cmd.Context(), timesheet.IngestRequest{
				TeamID:    generic.TeamID(teamID),
				CompanyID: generic.CompanyID(companyID),
				Files:     files,
				DryRun:    dryRun,
				OnFile:    newProgress(cmd, len(files)),
			})
			if err != nil {
				return err
			}

			printIngestSummary(cmd, result, dryRun)
			return nil
		},
	}

	cmd.Flags().StringVar(&teamID, "team", "", "team whose leave codes classify the rows (required)")
	cmd.Flags().StringVar(&companyID, "company", "", "company whose forecast resolves charge codes (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and report without recording")
	_ = cmd.MarkFlagRequired("team")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

// expandPaths replaces directories with the supported, non-hidden files
// directly inside them.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		for _, e := range entries {
			if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") && timesheet.IsSupported(e.Name()) {
				paths = append(paths, filepath.Join(arg, e.Name()))
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// newProgress reports one step per settled file. Files are opened by the
// parser, so an unreadable file shows up as a failure, not an abort.
func newProgress(cmd *cobra.Command, total int) func(name string, err error) {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Parsing timesheets"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)
	return func(string, error) { _ = bar.Add(1) }
}

func printIngestSummary(cmd *cobra.Command, r *timesheet.IngestResult, dryRun bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %d files, %d entries\n", r.RunID, r.Files, r.Entries)
	if dryRun {
		fmt.Fprintln(out, "Dry run: nothing recorded")
	} else {
		fmt.Fprintf(out, "Recorded: %d inserted, %d modified, %d unchanged, %d merged\n",
			r.Recorded.Inserted, r.Recorded.Modified, r.Recorded.Unchanged, r.Recorded.Merged)
	}
	for _, f := range r.Failures {
		fmt.Fprintf(out, "FAILED %s\n", f.Error())
	}
	for _, i := range r.Issues {
		fmt.Fprintf(out, "skipped %s\n", i)
	}
}
