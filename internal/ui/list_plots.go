package ui

import (
	"fmt"

	"github.com/forest-guardian/moisture-index-cli/internal/sentinel"
)

// ListPlots handles the UI for viewing the list of available forest plots
func ListPlots(forest string) {
	PrintWarning("To add a plot to a forest add the 'plot_id' property at the '.geojson' file from the forest of your choice.\nThe 'plot_id' property should be located at 'features[N]properties.plot_id'.")

	if forest == "" {
		forest = ReadString("Enter the forest name: ")
	}

	plotIDs, err := sentinel.ListPlots(ForestPath(forest))
	if err != nil {
		PrintError(err.Error())
		return
	}
	if len(plotIDs) == 0 {
		PrintError(fmt.Sprintf("no plot IDs found in forest %s", forest))
		return
	}

	fmt.Printf("\n%sAvailable plots:%s\n", ColorGreen, ColorReset)
	for _, plotID := range plotIDs {
		fmt.Printf("%s- %s%s\n", ColorGreen, plotID, ColorReset)
	}
}
