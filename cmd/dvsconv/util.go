package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"dvsconv/internal/metrics"
)

func printTable(header table.Row, rows []table.Row) {
	t := table.NewWriter()
	t.AppendHeader(header)
	t.AppendRows(rows)

	configs := make([]table.ColumnConfig, len(header))
	for i := range header {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignRight, AlignHeader: text.AlignCenter}
	}
	configs[0].Align = text.AlignLeft
	t.SetColumnConfigs(configs)
	t.SetOutputMirror(os.Stdout)
	t.Render()
}

func printMetrics() error {
	samples, err := metrics.Dump()
	if err != nil {
		return err
	}

	rows := make([]table.Row, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, table.Row{s.Name, s.Labels, s.Value})
	}
	printTable(table.Row{"Metric", "Labels", "Value"}, rows)
	return nil
}
