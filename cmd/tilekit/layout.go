package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/tilekit-ml/tilekit/layout"
)

type layoutReport struct {
	Layout  string `json:"layout"`
	Size    int    `json:"size"`
	Cosize  int    `json:"cosize"`
	Offsets []int  `json:"offsets"`
	Inner   string `json:"inner,omitempty"`
	Outer   string `json:"outer,omitempty"`
}

func layoutCmd() *cli.Command {
	var (
		shapeStr  string
		strideStr string
		tileStr   string
		rowMajor  bool
		asJSON    bool
	)

	return &cli.Command{
		Name:  "layout",
		Usage: "Print a layout's offset table and sizes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "shape",
				Aliases:     []string{"s"},
				Usage:       "comma-separated extents, e.g. 8,8",
				Destination: &shapeStr,
				Required:    true,
			},
			&cli.StringFlag{Name: "stride", Usage: "comma-separated strides (default compact column-major)", Destination: &strideStr},
			&cli.BoolFlag{Name: "row-major", Usage: "use row-major strides", Destination: &rowMajor},
			&cli.StringFlag{Name: "tile", Usage: "tile extents for a zipped divide, e.g. 4,2", Destination: &tileStr},
			&cli.BoolFlag{Name: "json", Usage: "emit JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx

			dims, err := parseInts(shapeStr)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: shape: %v", err), 1)
			}

			var l layout.Layout
			switch {
			case strideStr != "":
				strides, err := parseInts(strideStr)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: stride: %v", err), 1)
				}
				if len(strides) != len(dims) {
					return cli.Exit("error: shape and stride rank differ", 1)
				}
				l = layout.New(layout.Is(dims...), layout.Is(strides...))
			case rowMajor:
				l = layout.RowMajor(dims...)
			default:
				l = layout.ColMajor(dims...)
			}

			rep := layoutReport{
				Layout:  l.String(),
				Size:    l.Size(),
				Cosize:  l.Cosize(),
				Offsets: make([]int, l.Size()),
			}
			for i := range rep.Offsets {
				rep.Offsets[i] = l.OffsetLinear(i)
			}

			if tileStr != "" {
				tileDims, err := parseInts(tileStr)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: tile: %v", err), 1)
				}
				if len(tileDims) > len(dims) {
					return cli.Exit("error: tile rank exceeds shape rank", 1)
				}
				tiler := make([]layout.Layout, len(tileDims))
				for i, d := range tileDims {
					tiler[i] = layout.ColMajor(d)
				}
				z := layout.ZippedDivide(l, tiler)
				rep.Inner = z.Mode(0).String()
				rep.Outer = z.Mode(1).String()
			}

			if asJSON {
				out, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: marshal: %v", err), 1)
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Printf("layout: %s\n", rep.Layout)
			fmt.Printf("size:   %d\n", rep.Size)
			fmt.Printf("cosize: %d\n", rep.Cosize)
			if rep.Inner != "" {
				fmt.Printf("inner:  %s\n", rep.Inner)
				fmt.Printf("outer:  %s\n", rep.Outer)
			}
			printOffsetTable(l, dims)
			return nil
		},
	}
}

// printOffsetTable renders rank-2 layouts as a grid, everything else as
// idx -> offset lines.
func printOffsetTable(l layout.Layout, dims []int) {
	if len(dims) == 2 {
		for r := 0; r < dims[0]; r++ {
			var row []string
			for c := 0; c < dims[1]; c++ {
				row = append(row, fmt.Sprintf("%4d", l.Offset(layout.Is(r, c))))
			}
			fmt.Println(strings.Join(row, " "))
		}
		return
	}
	for i := 0; i < l.Size(); i++ {
		fmt.Printf("%4d -> %d\n", i, l.OffsetLinear(i))
	}
}

func parseInts(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad integer %q", p)
		}
		if v <= 0 {
			return nil, fmt.Errorf("extent %d must be positive", v)
		}
		out = append(out, v)
	}
	return out, nil
}
