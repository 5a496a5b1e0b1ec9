package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/roost/internal/config"
	"github.com/simonhull/firebird-suite/roost/internal/logger"
	"github.com/simonhull/firebird-suite/roost/internal/output"
)

// Version is overridden at build time with -ldflags "-X ...commands.Version=v1.2.3"
var Version = "dev"

var (
	verbose    bool
	configPath string

	cfg *config.Config
	log logger.Logger
)

// RootCmd is the root command for roost
var RootCmd = &cobra.Command{
	Use:   "roost",
	Short: "Roost - NestJS project generator",
	Long: `Roost assembles NestJS projects from a starter and a set of features.
Features contribute files, package dependencies and code fragments, and can be
composed into a single monolith or into one directory per microservice.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		output.SetVerbose(verbose)

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		log = cfg.Logger(verbose)
		return nil
	},
}

// Execute runs the root command and prints any returned error
func Execute() error {
	if err := RootCmd.Execute(); err != nil {
		output.Error(err.Error())
		return err
	}
	return nil
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logging")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ./roost.yaml)")

	RootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Roost %s\n", Version)
		},
	})
}
