package ui

import (
	"fmt"
	"path/filepath"

	"github.com/forest-guardian/moisture-index-cli/internal/delivery"
	"github.com/forest-guardian/moisture-index-cli/internal/properties"
	"github.com/forest-guardian/moisture-index-cli/output"
)

// PrintForestResults prints one line per plot of a forest run.
func PrintForestResults(results []delivery.PlotResult) {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("%s- plot %s: %s%s\n", ColorRed, r.Plot, r.Err.Error(), ColorReset)
			continue
		}
		fmt.Printf("%s- plot %s: mean NDMI %.4f over %d pixels (%s)%s\n",
			ColorGreen, r.Plot, r.Result.Mean, r.Result.Stats.Count, r.Result.Scene, ColorReset)
	}
	if failed > 0 {
		PrintError(fmt.Sprintf("%d of %d plots failed", failed, len(results)))
		return
	}
	PrintSuccess(fmt.Sprintf("Successful analysis of %d plots!", len(results)))
}

// ShowSummary prints the summary.csv found in dir, defaulting to the result
// folder.
func ShowSummary(dir string) {
	if dir == "" {
		dir = filepath.Join(properties.RootPath(), "data", "result")
	}
	rows, err := output.ReadSummary(filepath.Join(dir, output.SummaryFile))
	if err != nil {
		PrintError(fmt.Sprintf("Error reading summary: %s", err.Error()))
		return
	}
	if len(rows) == 0 {
		PrintWarning("No runs recorded yet.")
		return
	}

	fmt.Printf("\n%s%-24s %-12s %-8s %8s %10s %10s%s\n", ColorGreen, "AREA", "DATE", "FALLBACK", "PIXELS", "MEAN", "STD DEV", ColorReset)
	for _, row := range rows {
		fmt.Printf("%s%-24s %-12s %-8t %8d %10.4f %10.4f%s\n",
			ColorGreen, row.Area, dateOf(row.Datetime), row.UsedFallback, row.ValidPixels, row.Mean, row.StdDev, ColorReset)
	}
}

func dateOf(datetime string) string {
	if len(datetime) >= 10 {
		return datetime[:10]
	}
	return datetime
}
