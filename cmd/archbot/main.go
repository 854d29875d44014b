package main

import (
	"fmt"
	"os"

	"github.com/m3rciful/archbot/core/buildinfo"
	corecmd "github.com/m3rciful/archbot/core/cmd"
	coreconfig "github.com/m3rciful/archbot/core/config"
	"github.com/m3rciful/archbot/internal/architect"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !corecmd.IsReported(err) {
			fmt.Fprintln(os.Stderr, "archbot:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		envFiles   []string
	)

	root := &cobra.Command{
		Use:           "archbot",
		Short:         "AI architect Telegram bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return corecmd.Run(corecmd.Options{
				ConfigPath: configPath,
				EnvFiles:   envFiles,
				Bootstrap: func(cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
					return architect.Bootstrap(cfg)
				},
				Context: cmd.Context(),
			})
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (overrides CONFIG_PATH)")
	root.Flags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	})
	return root
}
