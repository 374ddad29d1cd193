// ABOUTME: Root Cobra command for the healthexport CLI.
// ABOUTME: Loads configuration and the shared logger for all subcommands.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthexport/internal/config"
	"github.com/harperreed/healthexport/internal/parser"
	"github.com/harperreed/healthexport/internal/table"
)

var (
	cfg    *config.Config
	logger *log.Logger

	verbose        bool
	filterActivity string
	filterFrom     string
	filterTo       string
)

var rootCmd = &cobra.Command{
	Use:   "healthexport",
	Short: "Analyze Apple Health workout exports",
	Long: `Healthexport reads the export.zip archive produced by the Apple Health
app and turns its workouts into summaries, breakdowns, and data files.

GETTING AN EXPORT:

  On your iPhone, open Health, tap your profile picture, and choose
  "Export All Health Data". The resulting export.zip is what this tool
  reads. Nothing is uploaded anywhere; parsing happens locally.

QUICK START:

  $ healthexport stats export.zip                  # Workout summary
  $ healthexport activities export.zip             # List activity types
  $ healthexport breakdown export.zip --metric distance --by activity
  $ healthexport breakdown export.zip --metric count --by M
  $ healthexport export json export.zip -o workouts.json

FILTERS:

  Most commands accept --activity, --from, and --to to restrict which
  workouts are considered. Dates use YYYY-MM-DD and --to includes the
  whole day it names.

CONFIGURATION:

  Defaults for the distance unit and breakdown grouping live in
  ~/.config/healthexport/config.json:

  {
    "distance_unit": "km",
    "group_threshold": 10
  }`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
		if verbose {
			logger.SetLevel(log.DebugLevel)
		} else {
			logger.SetLevel(log.WarnLevel)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log parsing progress to stderr")
}

// addFilterFlags registers the shared workout filter flags on a command.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&filterActivity, "activity", "a", "", "only include this activity type (e.g. Running)")
	cmd.Flags().StringVar(&filterFrom, "from", "", "only include workouts on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&filterTo, "to", "", "only include workouts up to and including this date (YYYY-MM-DD)")
}

// buildFilter turns the shared flag values into a table filter.
func buildFilter() (table.Filter, error) {
	var f table.Filter
	if filterActivity != "" {
		f.ActivityType = &filterActivity
	}
	if filterFrom != "" {
		t, err := time.Parse("2006-01-02", filterFrom)
		if err != nil {
			return f, fmt.Errorf("invalid --from date: %s (use YYYY-MM-DD)", filterFrom)
		}
		f.StartDate = &t
	}
	if filterTo != "" {
		t, err := time.Parse("2006-01-02", filterTo)
		if err != nil {
			return f, fmt.Errorf("invalid --to date: %s (use YYYY-MM-DD)", filterTo)
		}
		f.EndDate = &t
	}
	return f, nil
}

// loadTable parses the archive named by the first positional argument.
func loadTable(archivePath string) (*table.Table, error) {
	p := parser.New()
	p.Logger = logger
	return p.Parse(archivePath)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
