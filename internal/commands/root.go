// Package commands implements the ledgerctl command tree.
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/log"
)

// Version is set at build time.
var Version = "dev"

// env is what every subcommand shares once the root has loaded config.
type env struct {
	cfg    *config.Config
	loc    *time.Location
	logger *log.Logger
}

func (e *env) open(ctx context.Context) (*backend.BackendResult, error) {
	return cli.OpenLedger(ctx, e.logger, e.cfg, false)
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var (
		cfgFile string
		debug   bool
	)
	e := &env{}

	rootCmd := &cobra.Command{
		Use:     "ledgerctl",
		Short:   "Record expenses and inspect daily spend",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				if err := os.Setenv(config.FileEnvVar, cfgFile); err != nil {
					return err
				}
			}
			cfg, err := cli.LoadConfig()
			if err != nil {
				return err
			}
			if debug {
				cfg.LogLevel = "debug"
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.loc = loc
			e.logger = cli.SetupLogger(cfg, cmd.ErrOrStderr(), log.ComponentCLI)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (overrides "+config.FileEnvVar+")")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newAddCommand(e),
		newListCommand(e),
		newChartCommand(e),
		newSeedCommand(e),
	)

	return rootCmd
}

// withLedger opens the backend for one command and closes it afterwards.
func withLedger(ctx context.Context, e *env, fn func(*backend.BackendResult) error) (err error) {
	res, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := res.Cleanup(); cerr != nil && err == nil {
			err = fmt.Errorf("close ledger: %w", cerr)
		}
	}()
	return fn(res)
}
