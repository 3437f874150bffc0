// Package cli defines the cobra command tree for the assoc binary.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"association-admin-api/internal/config"
	"association-admin-api/internal/logging"
)

// app holds what the server-side commands share. Config and logger are
// loaded lazily so client commands run without a JWT secret.
type app struct {
	configPath string
	dev        bool

	cfg *config.Config
	log *zap.Logger
}

func (a *app) load() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dev {
		cfg.DevMode = true
	}
	log, err := logging.New(cfg.DevMode)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

// NewRootCmd creates the root command with global flags.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "assoc",
		Short:         "Association admin API",
		Long:          "Serve and administer the REST API behind the association admin console.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file overlaid on the environment")
	root.PersistentFlags().BoolVar(&a.dev, "dev", false, "development mode (debug logs, mail is logged not sent)")

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newUserCmd(a),
		newWatchCmd(),
	)
	return root
}
