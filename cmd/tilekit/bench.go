package main

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/tilekit-ml/tilekit/layout"
	"github.com/tilekit-ml/tilekit/pipeline"
	"github.com/tilekit-ml/tilekit/tile"
)

type benchReport struct {
	Rows    int     `json:"rows"`
	Cols    int     `json:"cols"`
	Tile    []int   `json:"tile"`
	Stages  int     `json:"stages"`
	Workers int     `json:"workers"`
	Iters   int     `json:"iters"`
	Bytes   int64   `json:"bytes"`
	SyncMs  float64 `json:"sync_ms"`
	AsyncMs float64 `json:"async_ms"`
	Speedup float64 `json:"speedup"`
}

func benchCmd() *cli.Command {
	var (
		rows    int
		cols    int
		tileStr string
		stages  int
		workers int
		iters   int
		verbose bool
		asJSON  bool
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "Time synchronous vs pipelined async tile copies on host buffers",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "rows", Usage: "source rows", Value: 1024, Destination: &rows},
			&cli.IntFlag{Name: "cols", Usage: "source columns", Value: 1024, Destination: &cols},
			&cli.StringFlag{Name: "tile", Usage: "tile extents, e.g. 128,64", Value: "128,64", Destination: &tileStr},
			&cli.IntFlag{Name: "stages", Usage: "pipeline stages", Value: 2, Destination: &stages},
			&cli.IntFlag{Name: "workers", Usage: "DMA workers (0 = all CPUs)", Destination: &workers},
			&cli.IntFlag{Name: "iters", Usage: "passes over the whole tensor", Value: 4, Destination: &iters},
			&cli.BoolFlag{Name: "verbose", Usage: "trace every copy operation", Destination: &verbose},
			&cli.BoolFlag{Name: "json", Usage: "emit JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx

			td, err := parseInts(tileStr)
			if err != nil || len(td) != 2 {
				return cli.Exit("error: tile must be two positive extents", 1)
			}
			if rows%td[0] != 0 || cols%td[1] != 0 {
				return cli.Exit(fmt.Sprintf("error: tile %dx%d does not divide %dx%d", td[0], td[1], rows, cols), 1)
			}

			src := tile.Of[float32](tile.NewHost(rows*cols*4), layout.ColMajor(rows, cols))
			for i := 0; i < rows*cols; i++ {
				tile.SetLinear(src, i, float32(i))
			}
			tm, tn := rows/td[0], cols/td[1]
			tileBytes := td[0] * td[1] * 4

			// Synchronous baseline: one staging tile, copied through in order.
			tiler := src.Tile(td[0], td[1])
			stage := tile.Of[float32](tile.NewShared(tileBytes), layout.ColMajor(td[0], td[1]))

			syncStart := time.Now()
			for it := 0; it < iters; it++ {
				for j := 0; j < tn; j++ {
					for i := 0; i < tm; i++ {
						tile.Copy[float32](stage, tiler.At(i, j))
					}
				}
			}
			syncDur := time.Since(syncStart)

			// Pipelined async path over the same tiles.
			opts := []pipeline.EngineOption{}
			if workers > 0 {
				opts = append(opts, pipeline.WithWorkers(workers))
			}
			if verbose {
				opts = append(opts, pipeline.WithTracer(pipeline.NewTracer(newPrettyLogger())))
			}
			e := pipeline.NewEngine(opts...)
			defer e.Close()

			desc := pipeline.NewDescriptor(src, td, pipeline.SwizzleNone)
			stageTiles := make([]tile.View, stages)
			bars := make([]*pipeline.Barrier, stages)
			for i := range stageTiles {
				stageTiles[i] = tile.Of[float32](tile.NewShared(tileBytes), layout.ColMajor(td[0], td[1]))
				bars[i] = pipeline.NewBarrier()
				bars[i].Init(0)
			}

			total := iters * tm * tn
			producer := pipeline.NewState(stages)
			consumer := pipeline.NewState(stages)
			issue := func(k int) {
				e.AsyncCopy(desc, stageTiles[producer.Index()], bars[producer.Index()], k%tm, (k/tm)%tn)
				producer.Step()
			}

			asyncStart := time.Now()
			issued := 0
			for ; issued < stages && issued < total; issued++ {
				issue(issued)
			}
			for done := 0; done < total; done++ {
				bars[consumer.Index()].Wait(consumer.Phase())
				consumer.Step()
				if issued < total {
					issue(issued)
					issued++
				}
			}
			asyncDur := time.Since(asyncStart)

			rep := benchReport{
				Rows:    rows,
				Cols:    cols,
				Tile:    td,
				Stages:  stages,
				Workers: workers,
				Iters:   iters,
				Bytes:   int64(total) * int64(tileBytes),
				SyncMs:  float64(syncDur.Microseconds()) / 1000,
				AsyncMs: float64(asyncDur.Microseconds()) / 1000,
			}
			if asyncDur > 0 {
				rep.Speedup = float64(syncDur) / float64(asyncDur)
			}

			if asJSON {
				out, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: marshal: %v", err), 1)
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Printf("source:  %dx%d float32, %d tiles of %dx%d, %d passes\n", rows, cols, tm*tn, td[0], td[1], iters)
			fmt.Printf("moved:   %s\n", formatBytes(uint64(rep.Bytes)))
			fmt.Printf("sync:    %8.3f ms  (%s/s)\n", rep.SyncMs, formatBytes(rate(rep.Bytes, syncDur)))
			fmt.Printf("async:   %8.3f ms  (%s/s)  stages=%d\n", rep.AsyncMs, formatBytes(rate(rep.Bytes, asyncDur)), stages)
			fmt.Printf("speedup: %.2fx\n", rep.Speedup)
			return nil
		},
	}
}

func rate(bytes int64, d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(float64(bytes) / d.Seconds())
}

func formatBytes(b uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
