package main

import (
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"dvsconv/internal/config"
	"dvsconv/internal/convert"
	"dvsconv/internal/event"
)

const defaultDecodeLimit = 100

func newDecodeCommand() *cobra.Command {
	var (
		input     string
		timebase  float64
		timescale float64
		limit     int
		mmap      bool
	)

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "decode binary frames and print the events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dc := cfg.Decode
			flags := cmd.Flags()
			if flags.Changed("input") {
				dc.Input = input
			}
			if flags.Changed("timebase") {
				dc.Timebase = timebase
			}
			if flags.Changed("timescale") {
				dc.Timescale = timescale
			}
			if flags.Changed("mmap") {
				dc.Mmap = mmap
			}

			var rows []table.Row
			st, err := convert.DecodeFile(cmd.Context(), dc, func(chunk int, events []event.SaeEvent) error {
				for _, e := range events {
					if limit > 0 && len(rows) >= limit {
						return nil
					}
					rows = append(rows, table.Row{chunk, e.Row, e.Col, e.Polarity, e.Timestamp})
				}
				return nil
			})
			if err != nil {
				return err
			}

			printTable(table.Row{"Chunk", "Row", "Col", "Polarity", "Timestamp"}, rows)
			if st.Records > len(rows) {
				color.White("showing %d of %d events", len(rows), st.Records)
			}
			if st.Mismatches > 0 {
				color.Yellow("%d chunks with inconsistent counters", st.Mismatches)
			}
			color.Green("%d records decoded from %d chunks", st.Records, st.Chunks)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", config.DefaultOutput, "binary frame file")
	cmd.Flags().Float64Var(&timebase, "timebase", 0, "source time mapped to timestamp 0, in seconds")
	cmd.Flags().Float64Var(&timescale, "timescale", config.DefaultTimescale, "seconds per timestamp unit")
	cmd.Flags().IntVar(&limit, "limit", defaultDecodeLimit, "maximum events to print, 0 for all")
	cmd.Flags().BoolVar(&mmap, "mmap", false, "read the file through a memory mapping")
	return cmd
}
