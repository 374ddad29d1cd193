// ABOUTME: CLI commands for workout summaries and activity listings.
// ABOUTME: Prints totals, date bounds, and per-archive statistics.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statsUnit string

var statsCmd = &cobra.Command{
	Use:   "stats <export.zip>",
	Short: "Summarize the workouts in an export archive",
	Long: `Summarize the workouts in an export archive.

Shows the workout count, total distance, duration, elevation gain, and
active calories, optionally restricted by the shared filters.

EXAMPLES:

  healthexport stats export.zip
  healthexport stats export.zip --activity Running
  healthexport stats export.zip --from 2024-01-01 --to 2024-12-31
  healthexport stats export.zip --unit mi`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, err := loadTable(args[0])
		if err != nil {
			return err
		}

		filter, err := buildFilter()
		if err != nil {
			return err
		}

		unit := statsUnit
		if unit == "" {
			unit = cfg.GetDistanceUnit()
		}

		fmt.Print(tbl.Statistics())
		if tbl.Len() == 0 {
			fmt.Println()
			return nil
		}

		first, last := tbl.DateBounds()
		fmt.Printf("Workouts span %s to %s.\n\n", first, last)

		distance, err := tbl.TotalDistance(unit, filter)
		if err != nil {
			return err
		}
		elevation, err := tbl.TotalElevation(unit, filter)
		if err != nil {
			return err
		}

		bold := color.New(color.Bold)
		bold.Println("Filtered totals:")
		fmt.Printf("  Workouts:   %d\n", tbl.Count(filter))
		fmt.Printf("  Distance:   %d %s\n", distance, unit)
		fmt.Printf("  Duration:   %d h\n", tbl.TotalDuration(filter))
		fmt.Printf("  Elevation:  %d %s\n", elevation, unit)
		fmt.Printf("  Calories:   %d kcal\n", tbl.TotalCalories(filter))

		return nil
	},
}

var activitiesCmd = &cobra.Command{
	Use:   "activities <export.zip>",
	Short: "List the activity types found in an export archive",
	Long: `List the distinct workout activity types in an export archive, in the
order they first appear.

EXAMPLES:

  healthexport activities export.zip`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, err := loadTable(args[0])
		if err != nil {
			return err
		}

		types := tbl.ActivityTypes()
		if len(types) == 0 {
			fmt.Println("No workout loaded.")
			return nil
		}
		for _, name := range types {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	addFilterFlags(statsCmd)
	statsCmd.Flags().StringVarP(&statsUnit, "unit", "u", "", "distance unit: km, m, or mi (default from config)")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(activitiesCmd)
}
