package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"dvsconv/internal/inspect"
)

func newInspectCommand() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "report frame statistics of a binary file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := cfg.Decode.Input
			if cmd.Flags().Changed("input") {
				path = input
			}

			rep, err := inspect.ScanFile(cmd.Context(), path)
			if err != nil {
				return err
			}

			printTable(table.Row{"Field", "Value"}, []table.Row{
				{"File", path},
				{"Frames", rep.Frames},
				{"Records", rep.Records},
				{"Rising", rep.Rising},
				{"Falling", rep.Falling},
				{"Mismatches", rep.Mismatches},
				{"File size", rep.FileSize},
				{"Valid size", rep.ValidSize},
				{"Payload p50", rep.PayloadP50},
				{"Payload p99", rep.PayloadP99},
				{"Payload max", rep.PayloadMax},
				{"Payload mean", fmt.Sprintf("%.2f", rep.PayloadMean)},
			})

			if rep.Truncated || rep.ValidSize < rep.FileSize {
				color.Yellow("%d trailing bytes after the last complete frame", rep.FileSize-rep.ValidSize)
			}
			if rep.Mismatches > 0 {
				color.Yellow("%d frames with inconsistent counters", rep.Mismatches)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "binary frame file, defaults to the decode input")
	return cmd
}
