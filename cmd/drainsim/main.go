// SPDX-License-Identifier: MIT

// Command drainsim runs the drainage engine over a synthetic coastal
// landscape split across in-process ranks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/katalvlaran/drainage/config"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "drainsim",
	Short: "Distributed drainage-network flow accumulation and erosion",
	Long: `drainsim advances a landscape through repeated steps of depression
filling, multi-receiver flow routing, discharge accumulation and implicit
stream-power erosion. The mesh is split into block partitions that run as
concurrent ranks exchanging ghost values.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		if logger, err = cfg.Logger(verbose); err != nil {
			return err
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// configCmd prints the effective configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)

		return err
	},
}

// initCmd writes the default configuration to a file.
var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Default().Save(args[0]); err != nil {
			return err
		}
		logger.Info("configuration written", zap.String("path", args[0]))

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "drainsim.yaml", "Configuration file (defaults apply when missing)")

	runCmd.Flags().IntVar(&stepsFlag, "steps", 0, "Override run.steps")
	runCmd.Flags().IntVar(&partitionsFlag, "partitions", 0, "Override run.partitions")
	runCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
