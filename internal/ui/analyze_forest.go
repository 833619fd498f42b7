package ui

import (
	"context"
	"fmt"
	"os"

	"github.com/forest-guardian/moisture-index-cli/internal/properties"
)

// AnalyzeForest handles the UI for computing the NDMI of every plot in a
// forest for a specific date
func AnalyzeForest(ctx context.Context, app *App) {
	PrintWarning("- A '.geojson' file with the forest name should be present in data/geojsons folder.\n- Every feature of the '.geojson' file identified by plot_id is analyzed.")

	forest := ReadString("Enter the forest name: ")
	if forest == "" {
		PrintError("forest name cannot be empty")
		return
	}
	if _, err := os.Stat(ForestPath(forest)); err != nil {
		PrintError(fmt.Sprintf("Error opening forest: %s", err.Error()))
		return
	}

	primary, fallback, err := ReadWindows()
	if err != nil {
		PrintError(err.Error())
		return
	}

	rf := &properties.RunFile{
		AOI:      ForestPath(forest),
		Primary:  primary,
		Fallback: fallback,
	}
	rf.ApplyDefaults()

	results, err := app.RunForest(ctx, rf, nil)
	if err != nil {
		PrintError(err.Error())
		return
	}
	PrintForestResults(results)
}
