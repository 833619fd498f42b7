package delivery

import (
	"context"
	"fmt"

	"github.com/gammazero/workerpool"
)

type PlotResult struct {
	Plot   string
	Result *Result
	Err    error
}

// EvaluateForest runs the pipeline once per plot on a pool of workers. Each
// plot gets its own copy of cfg with the AOI taken from source(plot). Results
// come back in the order of plots; a failed plot does not stop the others.
func (p *Pipeline) EvaluateForest(ctx context.Context, cfg Config, plots []string, source func(plot string) AOISource, workers int) []PlotResult {
	if workers <= 0 {
		workers = 4
	}
	results := make([]PlotResult, len(plots))
	wp := workerpool.New(workers)
	for i, plot := range plots {
		wp.Submit(func() {
			results[i].Plot = plot
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return
			}
			plotCfg := cfg
			plotCfg.AOI = source(plot)
			res, err := p.Run(ctx, plotCfg)
			if err != nil {
				fmt.Fprintf(p.log(), "Plot %s failed: %v\n", plot, err)
			}
			results[i].Result, results[i].Err = res, err
		})
	}
	wp.StopWait()
	return results
}
