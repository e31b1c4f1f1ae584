package cmd

import (
	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/chative-concierge/pkg/config"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

type rootOptions struct {
	envFile string
	debug   bool
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "concierge",
		Short:         "Rule-based concierge for products, outlets and arithmetic",
		Long:          "concierge answers questions about the drinkware catalog and outlet locations, evaluates arithmetic, and keeps short per-user conversation context.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configx.SetEnvFile(opts.envFile)
			logCfg, err := configx.New[logx.Config]("LOG")
			if err != nil {
				return err
			}
			if opts.debug {
				logCfg.Debug = true
			}
			logx.Init(*logCfg)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env", "", "path to .env file (default ./.env when present)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newServeCmd(),
		newChatCmd(opts),
	)

	return rootCmd
}
