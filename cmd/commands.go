package main

import (
	"fmt"
	"strings"

	"github.com/forest-guardian/moisture-index-cli/internal/properties"
	"github.com/forest-guardian/moisture-index-cli/internal/sentinel"
	"github.com/forest-guardian/moisture-index-cli/internal/ui"
	"github.com/spf13/cobra"
)

// runFlags mirror the keys of a run file. Flags given explicitly override
// the values read from --file.
type runFlags struct {
	file       string
	forest     string
	aoi        string
	plot       string
	primary    string
	fallback   string
	collection string
	resampling string
	selection  string
	output     string
	s3Prefix   string
	maxItems   int
	bins       int
}

func (f *runFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.file, "file", "f", "", "YAML run file")
	flags.StringVar(&f.forest, "forest", "", "forest name under data/geojsons")
	flags.StringVar(&f.aoi, "aoi", "", "path to the area of interest (GeoJSON or any OGR vector)")
	flags.StringVar(&f.primary, "primary", "", "primary search window, start/end")
	flags.StringVar(&f.fallback, "fallback", "", "fallback search window, start/end")
	flags.StringVar(&f.collection, "collection", "", "catalog collection")
	flags.StringVar(&f.resampling, "resampling", "", "nearest or bilinear")
	flags.StringVar(&f.selection, "selection", "", "most-recent or least-cloud-cover")
	flags.StringVarP(&f.output, "output", "o", "", "result folder")
	flags.StringVar(&f.s3Prefix, "s3-prefix", "", "key prefix of uploaded results")
	flags.IntVar(&f.maxItems, "max-items", 0, "maximum scenes per search")
	flags.IntVar(&f.bins, "bins", 0, "histogram bins of the summary")
}

func (f *runFlags) runFile() (*properties.RunFile, error) {
	rf := &properties.RunFile{}
	if f.file != "" {
		loaded, err := properties.LoadRunFile(f.file)
		if err != nil {
			return nil, err
		}
		rf = loaded
	}

	if f.forest != "" {
		rf.AOI = ui.ForestPath(f.forest)
	}
	override(&rf.AOI, f.aoi)
	override(&rf.Plot, f.plot)
	override(&rf.Primary, f.primary)
	override(&rf.Fallback, f.fallback)
	override(&rf.Collection, f.collection)
	override(&rf.Resampling, f.resampling)
	override(&rf.Selection, f.selection)
	override(&rf.OutputDir, f.output)
	override(&rf.S3Prefix, f.s3Prefix)
	if f.maxItems > 0 {
		rf.MaxItems = f.maxItems
	}
	if f.bins > 0 {
		rf.HistogramBins = f.bins
	}

	if rf.AOI == "" {
		return nil, fmt.Errorf("an area of interest is required: use --aoi, --forest or --file")
	}
	if rf.Primary == "" || rf.Fallback == "" {
		return nil, fmt.Errorf("both --primary and --fallback windows are required")
	}
	rf.ApplyDefaults()
	return rf, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "moisture",
		Short:         "Normalized Difference Moisture Index of forest plots from Sentinel-2 scenes",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return menu(cmd)
		},
	}
	root.AddCommand(newRunCmd(), newBatchCmd(), newSearchCmd(), newPlotsCmd(), newSummaryCmd(), newMenuCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute the NDMI of one area of interest",
		RunE: func(cmd *cobra.Command, args []string) error {
			rf, err := f.runFile()
			if err != nil {
				return fail(err)
			}
			app, err := ui.NewApp(cmd.Context())
			if err != nil {
				return fail(err)
			}
			result, err := app.RunPlot(cmd.Context(), rf)
			if err != nil {
				return fail(err)
			}
			ui.PrintSuccess(fmt.Sprintf("Mean NDMI of %s: %.4f over %d pixels (%s)", result.AOI.Name, result.Mean, result.Stats.Count, result.Scene))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.plot, "plot", "", "plot_id of the feature to analyze")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var f runFlags
	var plots string
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Compute the NDMI of every plot in a forest",
		RunE: func(cmd *cobra.Command, args []string) error {
			rf, err := f.runFile()
			if err != nil {
				return fail(err)
			}
			app, err := ui.NewApp(cmd.Context())
			if err != nil {
				return fail(err)
			}
			results, err := app.RunForest(cmd.Context(), rf, splitList(plots))
			if err != nil {
				return fail(err)
			}
			ui.PrintForestResults(results)
			for _, r := range results {
				if r.Err != nil {
					return fmt.Errorf("forest %s finished with failed plots", rf.AOI)
				}
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&plots, "plots", "", "comma separated plot_ids, all plots when empty")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "List the catalog scenes a run would choose from",
		RunE: func(cmd *cobra.Command, args []string) error {
			rf, err := f.runFile()
			if err != nil {
				return fail(err)
			}
			app, err := ui.NewApp(cmd.Context())
			if err != nil {
				return fail(err)
			}
			scenes, window, err := app.Search(cmd.Context(), rf)
			if err != nil {
				return fail(err)
			}
			fmt.Printf("\n%s%d scenes in %s:%s\n", ui.ColorGreen, len(scenes), window, ui.ColorReset)
			for _, s := range scenes {
				cloud := "n/a"
				if s.CloudCover != nil {
					cloud = fmt.Sprintf("%.1f%%", *s.CloudCover)
				}
				fmt.Printf("%s- %s cloud cover %s%s\n", ui.ColorGreen, s, cloud, ui.ColorReset)
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.plot, "plot", "", "plot_id of the feature to search for")
	return cmd
}

func newPlotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plots <forest | path>",
		Short: "List the plot_ids of a forest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.ContainsAny(path, `/\.`) {
				path = ui.ForestPath(path)
			}
			plots, err := sentinel.ListPlots(path)
			if err != nil {
				return fail(err)
			}
			for _, plot := range plots {
				fmt.Println(plot)
			}
			return nil
		},
	}
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary [result folder]",
		Short: "Show the summary of previous runs",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			ui.ShowSummary(dir)
		},
	}
}

func newMenuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Interactive menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			return menu(cmd)
		},
	}
}

func menu(cmd *cobra.Command) error {
	printBanner()
	app, err := ui.NewApp(cmd.Context())
	if err != nil {
		return fail(err)
	}
	ui.ShowMenu(cmd.Context(), app)
	return nil
}

func fail(err error) error {
	ui.PrintError(err.Error())
	return err
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
