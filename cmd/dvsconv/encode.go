package main

import (
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"dvsconv/internal/config"
	"dvsconv/internal/convert"
)

func newEncodeCommand() *cobra.Command {
	var (
		input          string
		output         string
		batchSize      int
		onBadRow       string
		flushEachFrame bool
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "encode a text event log into binary frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ec := cfg.Encode
			flags := cmd.Flags()
			if flags.Changed("input") {
				ec.Input = input
			}
			if flags.Changed("output") {
				ec.Output = output
			}
			if flags.Changed("batch-size") {
				ec.BatchSize = batchSize
			}
			if flags.Changed("on-bad-row") {
				ec.OnBadRow = config.BadRowPolicy(onBadRow)
			}
			if flags.Changed("flush-each-frame") {
				ec.FlushEachFrame = flushEachFrame
			}

			st, err := convert.EncodeFile(cmd.Context(), ec)
			if err != nil {
				return err
			}

			printTable(
				table.Row{"Input", "Output", "Records", "Chunks", "Bytes"},
				[]table.Row{{ec.Input, ec.Output, st.Records, st.Chunks, st.Bytes}},
			)
			color.Green("%d records processed in %d chunks", st.Records, st.Chunks)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", config.DefaultInput, "text event log, one \"time x y polarity\" row per line")
	cmd.Flags().StringVar(&output, "output", config.DefaultOutput, "binary frame file to create")
	cmd.Flags().IntVar(&batchSize, "batch-size", config.DefaultBatchSize, "maximum events per frame")
	cmd.Flags().StringVar(&onBadRow, "on-bad-row", string(config.BadRowAbort), "abort or stop")
	cmd.Flags().BoolVar(&flushEachFrame, "flush-each-frame", false, "flush the output after every frame")
	return cmd
}
