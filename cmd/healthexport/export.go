// ABOUTME: CLI command for exporting parsed workouts to data files.
// ABOUTME: Supports JSON, CSV, and YAML output formats.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthexport/internal/table"
)

var (
	exportOutput        string
	exportIncludeRoutes bool
)

var exportCmd = &cobra.Command{
	Use:   "export <format> <export.zip>",
	Short: "Export parsed workouts as a data file",
	Long: `Export the parsed workout table in various formats.

FORMATS:

  json   Schema-plus-data table document (stable key order)
  csv    One row per workout, native column order
  yaml   Workout list with an export envelope

Route data is left out by default; pass --include-routes to keep the
route file paths and point counts.

OPTIONS:

  --output, -o       Write to file instead of stdout
  --activity, -a     Only include this activity type (csv only)
  --include-routes   Keep route columns in the output

EXAMPLES:

  healthexport export json export.zip                 # JSON to stdout
  healthexport export json export.zip -o workouts.json
  healthexport export csv export.zip -a Running -o runs.csv
  healthexport export yaml export.zip`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"json", "csv", "yaml"},
	RunE: func(cmd *cobra.Command, args []string) error {
		format := args[0]

		tbl, err := loadTable(args[1])
		if err != nil {
			return err
		}

		exclude := map[string]bool{}
		if !exportIncludeRoutes {
			exclude = table.DefaultExcludedColumns()
		}

		var data []byte
		switch format {
		case "json":
			data, err = tbl.ExportJSON(exclude)
		case "csv":
			var activity *string
			if filterActivity != "" {
				activity = &filterActivity
			}
			data, err = tbl.ExportCSV(activity, exclude)
		case "yaml":
			data, err = tbl.ExportYAML(exclude)
		default:
			return fmt.Errorf("unknown format: %s (use json, csv, or yaml)", format)
		}
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput != "" {
			path := exportOutput
			if !filepath.IsAbs(path) && cfg.GetExportDir() != "." {
				path = filepath.Join(cfg.GetExportDir(), path)
			}
			if err := os.WriteFile(path, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.Green("✓ Exported to %s", path)
		} else {
			fmt.Println(string(data))
		}

		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringVarP(&filterActivity, "activity", "a", "", "only include this activity type (csv only)")
	exportCmd.Flags().BoolVar(&exportIncludeRoutes, "include-routes", false, "keep route columns in the output")

	rootCmd.AddCommand(exportCmd)
}
