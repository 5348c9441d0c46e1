package main

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/tilekit-ml/tilekit/layout"
)

type swizzleReport struct {
	Swizzle string `json:"swizzle"`
	Span    int    `json:"span"`
	Range   int    `json:"range"`
	Mapping []int  `json:"mapping,omitempty"`
	Valid   bool   `json:"valid"`
}

func swizzleCmd() *cli.Command {
	var (
		bits      int
		base      int
		shift     int
		elemBytes int
		rowSize   int
		rangeN    int
		showMap   bool
		asJSON    bool
	)

	return &cli.Command{
		Name:  "swizzle",
		Usage: "Verify a swizzle is a permutation and print its mapping",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "bits", Usage: "number of swizzled bits", Destination: &bits},
			&cli.IntFlag{Name: "base", Usage: "untouched low bits", Destination: &base},
			&cli.IntFlag{Name: "shift", Usage: "distance between source and target bits", Destination: &shift},
			&cli.IntFlag{Name: "elem-bytes", Usage: "derive from ldmatrix: element width in bytes", Destination: &elemBytes},
			&cli.IntFlag{Name: "row-size", Usage: "derive from ldmatrix: elements per row", Destination: &rowSize},
			&cli.IntFlag{Name: "range", Usage: "offsets to check (default one span window)", Destination: &rangeN},
			&cli.BoolFlag{Name: "map", Usage: "print the full offset mapping", Destination: &showMap},
			&cli.BoolFlag{Name: "json", Usage: "emit JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx

			var sw layout.Swizzle
			if elemBytes > 0 && rowSize > 0 {
				sw = layout.MakeLdmatrixSwizzle(elemBytes, rowSize)
			} else {
				sw = layout.NewSwizzle(bits, base, shift)
			}

			span := sw.Span()
			n := rangeN
			if n == 0 {
				n = span
			}
			if n%span != 0 {
				return cli.Exit(fmt.Sprintf("error: range %d is not a multiple of span %d", n, span), 1)
			}

			rep := swizzleReport{
				Swizzle: sw.String(),
				Span:    span,
				Range:   n,
				Valid:   verifyPermutation(sw, n, span),
			}
			if showMap {
				rep.Mapping = make([]int, n)
				for o := range rep.Mapping {
					rep.Mapping[o] = sw.Apply(o)
				}
			}

			if asJSON {
				out, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: marshal: %v", err), 1)
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Printf("swizzle: %s\n", rep.Swizzle)
			fmt.Printf("span:    %d\n", rep.Span)
			fmt.Printf("range:   %d\n", rep.Range)
			if rep.Valid {
				fmt.Println("permutation: ok")
			} else {
				fmt.Println("permutation: BROKEN")
			}
			if showMap {
				for o, m := range rep.Mapping {
					marker := ""
					if m != o {
						marker = " *"
					}
					fmt.Printf("%4d -> %4d%s\n", o, m, marker)
				}
			}
			if !rep.Valid {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// verifyPermutation checks that the swizzle maps every span-aligned window
// onto itself bijectively.
func verifyPermutation(sw layout.Swizzle, n, span int) bool {
	for w := 0; w < n; w += span {
		seen := make(map[int]bool, span)
		for o := w; o < w+span; o++ {
			m := sw.Apply(o)
			if m < w || m >= w+span || seen[m] {
				return false
			}
			seen[m] = true
		}
	}
	return true
}
