package ui

import (
	"context"
	"fmt"

	"github.com/forest-guardian/moisture-index-cli/internal/properties"
)

// AnalyzePlot handles the UI for computing the NDMI of a forest plot for a
// specific date
func AnalyzePlot(ctx context.Context, app *App) {
	PrintWarning("- A '.geojson' file with the forest name should be present in data/geojsons folder.\n- The '.geojson' file should contain the desired plot in its features identified by plot_id.")

	forest, plot, err := ReadForestAndPlot()
	if err != nil {
		PrintError(err.Error())
		return
	}

	primary, fallback, err := ReadWindows()
	if err != nil {
		PrintError(err.Error())
		return
	}

	rf := &properties.RunFile{
		AOI:      ForestPath(forest),
		Plot:     plot,
		Primary:  primary,
		Fallback: fallback,
	}
	rf.ApplyDefaults()

	result, err := app.RunPlot(ctx, rf)
	if err != nil {
		PrintError(fmt.Sprintf("Error evaluating plot: %s", err.Error()))
		return
	}

	PrintSuccess(fmt.Sprintf("Successful analysis!\nScene: %s\nMean NDMI: %.4f over %d pixels\nResults located at: %s",
		result.Scene, result.Mean, result.Stats.Count, rf.OutputDir))
}
