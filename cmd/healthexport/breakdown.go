// ABOUTME: CLI command for metric breakdowns by activity or calendar period.
// ABOUTME: Prints sorted label/value pairs for one chosen metric.
package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthexport/internal/table"
)

var (
	breakdownMetric    string
	breakdownBy        string
	breakdownUnit      string
	breakdownThreshold float64
	breakdownFill      bool
)

var breakdownCmd = &cobra.Command{
	Use:   "breakdown <export.zip>",
	Short: "Break a workout metric down by activity or period",
	Long: `Break one workout metric down by activity type or calendar period.

METRICS (--metric):

  count      number of workouts
  distance   summed distance (km, m, or mi)
  duration   summed duration in hours
  calories   summed active energy in kcal
  elevation  summed ascent (km, m, or mi)

DIMENSIONS (--by):

  activity   one bucket per activity type
  D W M Q Y  one bucket per day, week, month, quarter, or year

Activity breakdowns fold slices under the grouping threshold into an
"Others" bucket; set --threshold 0 to disable. Period breakdowns can
fill gaps between the first and last workout with --fill.

EXAMPLES:

  healthexport breakdown export.zip --metric count --by activity
  healthexport breakdown export.zip --metric distance --by M
  healthexport breakdown export.zip --metric duration --by W --fill
  healthexport breakdown export.zip --metric elevation --by activity --unit m`,
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

		unit := breakdownUnit
		if unit == "" {
			unit = cfg.GetDistanceUnit()
		}
		threshold := breakdownThreshold
		if !cmd.Flags().Changed("threshold") {
			threshold = cfg.GetGroupThreshold()
		}

		var result map[string]int
		if breakdownBy == "activity" {
			result, err = activityBreakdown(tbl, unit, threshold, filter)
		} else {
			var period table.Period
			period, err = table.ParsePeriod(breakdownBy)
			if err != nil {
				return fmt.Errorf("invalid --by value: %s (use activity, D, W, M, Q, or Y)", breakdownBy)
			}
			result, err = periodBreakdown(tbl, period, unit, filter)
		}
		if err != nil {
			return err
		}

		if len(result) == 0 {
			fmt.Println("Nothing to show.")
			return nil
		}

		labels := make([]string, 0, len(result))
		for label := range result {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		bold := color.New(color.Bold)
		bold.Printf("%s by %s:\n", breakdownMetric, breakdownBy)
		for _, label := range labels {
			fmt.Printf("  %-24s %d\n", label, result[label])
		}
		return nil
	},
}

func activityBreakdown(tbl *table.Table, unit string, threshold float64, f table.Filter) (map[string]int, error) {
	switch breakdownMetric {
	case "count":
		return tbl.CountByActivity(threshold, f), nil
	case "distance":
		return tbl.DistanceByActivity(unit, threshold, f)
	case "duration":
		return tbl.DurationByActivity(threshold, f), nil
	case "calories":
		return tbl.CaloriesByActivity(threshold, f), nil
	case "elevation":
		return tbl.ElevationByActivity(unit, threshold, f)
	default:
		return nil, fmt.Errorf("unknown metric: %s (use count, distance, duration, calories, or elevation)", breakdownMetric)
	}
}

func periodBreakdown(tbl *table.Table, period table.Period, unit string, f table.Filter) (map[string]int, error) {
	switch breakdownMetric {
	case "count":
		return tbl.CountByPeriod(period, breakdownFill, f)
	case "distance":
		return tbl.DistanceByPeriod(period, unit, breakdownFill, f)
	case "duration":
		return tbl.DurationByPeriod(period, breakdownFill, f)
	case "calories":
		return tbl.CaloriesByPeriod(period, breakdownFill, f)
	case "elevation":
		return tbl.ElevationByPeriod(period, unit, breakdownFill, f)
	default:
		return nil, fmt.Errorf("unknown metric: %s (use count, distance, duration, calories, or elevation)", breakdownMetric)
	}
}

func init() {
	addFilterFlags(breakdownCmd)
	breakdownCmd.Flags().StringVarP(&breakdownMetric, "metric", "m", "count", "metric: count, distance, duration, calories, or elevation")
	breakdownCmd.Flags().StringVarP(&breakdownBy, "by", "b", "activity", "dimension: activity, D, W, M, Q, or Y")
	breakdownCmd.Flags().StringVarP(&breakdownUnit, "unit", "u", "", "distance unit: km, m, or mi (default from config)")
	breakdownCmd.Flags().Float64Var(&breakdownThreshold, "threshold", 0, "grouping threshold percentage (default from config)")
	breakdownCmd.Flags().BoolVar(&breakdownFill, "fill", false, "fill missing periods with zeros")

	rootCmd.AddCommand(breakdownCmd)
}
