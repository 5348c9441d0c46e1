package main

import (
	"context"
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/tilekit-ml/tilekit/internal/arch"
)

func targetsCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:  "targets",
		Usage: "List known architecture capability tables",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "emit JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx

			names := arch.Names()
			sort.Strings(names)
			def := arch.Default().Name

			if asJSON {
				targets := make([]arch.Target, 0, len(names))
				for _, name := range names {
					t, _ := arch.Lookup(name)
					targets = append(targets, t)
				}
				out, err := json.MarshalIndent(struct {
					Default string        `json:"default"`
					Targets []arch.Target `json:"targets"`
				}{Default: def, Targets: targets}, "", "  ")
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: marshal: %v", err), 1)
				}
				fmt.Println(string(out))
				return nil
			}

			for _, name := range names {
				t, _ := arch.Lookup(name)
				marker := " "
				if name == def {
					marker = "*"
				}
				fmt.Printf("%s %-10s smem=%-8d banks=%dx%dB swizzle<=%dB cluster=%-3d rank<=%d\n",
					marker, t.Name, t.SharedMemBytes, t.Banks, t.BankWidthBytes,
					t.MaxSwizzleBytes, t.ClusterSize, t.MaxBulkRank)
			}
			return nil
		},
	}
}
