// dvsconv converts DVS event logs into length-prefixed binary frames and back.
package main

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dvsconv/internal/config"
	"dvsconv/internal/log"
)

const (
	cliName        = "dvsconv"
	cliDescription = "convert DVS event logs to chunked binary frames and back"
)

var (
	configPath  string
	logLevel    string
	dumpMetrics bool

	cfg = config.Default()
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           cliName,
		Short:         cliDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configPath != "" {
				c, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = c
			}
			level := cfg.LogLevel
			if cmd.Flags().Changed("log-level") {
				level = logLevel
			}
			log.SetLevel(level)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if !dumpMetrics {
				return nil
			}
			return printMetrics()
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warning or error")
	cmd.PersistentFlags().BoolVar(&dumpMetrics, "metrics", false, "print counters after the run")

	cmd.AddCommand(
		newEncodeCommand(),
		newDecodeCommand(),
		newInspectCommand(),
	)
	return cmd
}

func main() {
	cobra.EnablePrefixMatching = true

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		color.Red("%s error: %s", cliName, err)
		os.Exit(1)
	}
}
