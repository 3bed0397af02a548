// Package commands implements the mlcore command line interface.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/mlcore/pkg/config"
	"github.com/YuminosukeSato/mlcore/pkg/log"
)

var (
	logLevel string
	cfg      *config.Config
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mlcore",
		Short: "Train, evaluate and apply mlcore models",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadEnv()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			level, err := log.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			log.InstallWarningBridge()
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level: debug, info, warn or error (default from MLCORE_LOG_LEVEL)")

	root.AddCommand(fitCmd(), predictCmd(), evaluateCmd(), versionCmd())
	return root
}

func Execute() error {
	return newRootCmd().Execute()
}
