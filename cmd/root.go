// Package cmd wires the command line interface
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/go-audioclient/cmd/capture"
	"github.com/tphakala/go-audioclient/cmd/devices"
	"github.com/tphakala/go-audioclient/cmd/info"
	"github.com/tphakala/go-audioclient/cmd/render"
	"github.com/tphakala/go-audioclient/internal/app"
	"github.com/tphakala/go-audioclient/internal/buildinfo"
	"github.com/tphakala/go-audioclient/internal/conf"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath  string
	debug       bool
	metricsAddr string
}

// RootCommand creates and returns the root command. The application
// context is built once flags are parsed and handed to subcommands through
// provider.
func RootCommand(build *buildinfo.Context) *cobra.Command {
	flags := &globalFlags{}
	var ctx *app.Context
	provider := func() *app.Context { return ctx }

	rootCmd := &cobra.Command{
		Use:           "audioclient",
		Short:         "Audio stream client",
		Version:       build.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	rootCmd.AddCommand(
		render.Command(provider),
		capture.Command(provider),
		devices.Command(provider),
		info.Command(provider),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(flags)
		if err != nil {
			return err
		}
		ctx, err = app.New(settings, build)
		if err != nil {
			return fmt.Errorf("failed to set up application: %w", err)
		}
		return nil
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if ctx == nil {
			return nil
		}
		return ctx.Close()
	}

	return rootCmd
}

// loadSettings reads the config and lets command line flags take precedence
func loadSettings(flags *globalFlags) (*conf.Settings, error) {
	settings, err := conf.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.debug {
		settings.Debug = true
	}
	if flags.metricsAddr != "" {
		settings.Metrics.Enabled = true
		settings.Metrics.Listen = flags.metricsAddr
		if err := conf.ValidateSettings(settings); err != nil {
			return nil, err
		}
	}
	return settings, nil
}
