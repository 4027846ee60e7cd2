package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"i4.energy/across/serbridge/device"
	"i4.energy/across/serbridge/settings"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "development"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serbridge",
		Short: "Transparent TCP bridge for a legacy serial device",
		Long: "serbridge relays bytes between one TCP client and a serial device. Both streams\n" +
			"are watched for +++AT control commands that query or change the stored configuration,\n" +
			"retune the device or put the bridge to sleep. An idle timer ends the session after\n" +
			"the configured sleep timeout.",
		SilenceUsage: true,
	}
	registerFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		runCmd(),
		portsCmd(),
		configCmd(),
		versionCmd(),
	)
	return cmd
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(os.Stderr, config)
			return run(cmd.Context(), config, logger)
		},
	}
}

func portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List the serial ports of this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := device.ListPorts()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the stored bridge configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored configuration record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			failsafe, err := cmd.Flags().GetBool("failsafe")
			if err != nil {
				return err
			}
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := settings.NewFileStore(config.DataDir)
			if err != nil {
				return err
			}

			name := settings.ConfigName
			if failsafe {
				name = settings.FailsafeName
			}
			raw, err := store.Raw(name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}
	show.Flags().Bool("failsafe", false, "if set, prints the failsafe record instead")

	cmd.AddCommand(show)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of serbridge",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "serbridge %s\n", version)
		},
	}
}

func loadConfig(cmd *cobra.Command) (*Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return LoadConfig(WithDefaults(), WithFile(path), WithEnv(), WithFlags(cmd.Flags()))
}

func newLogger(w io.Writer, config *Config) *slog.Logger {
	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	if config.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
