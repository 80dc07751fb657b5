// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"time"

	"clapper/internal/config"
	"clapper/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Command names returned in Invocation.Command. The empty string runs the
// full detection and rendering pipeline.
const (
	CommandRun     = ""
	CommandList    = "list"
	CommandRecord  = "record"
	CommandVersion = "version"
)

// Invocation is the parsed command line: the resolved configuration plus
// the options of the selected subcommand.
type Invocation struct {
	Config      *config.Config
	Command     string
	Interactive bool          // list: open the device picker
	Duration    time.Duration // record: stop after this long, zero runs until interrupted
}

// flagValues collects raw flag values; only flags the user set override
// the loaded configuration.
type flagValues struct {
	configPath string
	source     string
	file       string
	device     int
	record     bool
	output     string
	verbose    bool
	monitor    bool
}

// ParseArgs parses args (without the program name), loads the configuration
// file and applies flag overrides on top of it.
func ParseArgs(args []string) (*Invocation, error) {
	return parseArgs(args, nil)
}

func parseArgs(args []string, out io.Writer) (*Invocation, error) {
	buildInfo := build.GetBuildFlags()
	var (
		values flagValues
		inv    = &Invocation{}
	)

	resolve := func(cmd *cobra.Command, command string) error {
		cfg, err := config.LoadConfig(values.configPath)
		if err != nil {
			return err
		}
		if err := applyFlags(cfg, cmd.Flags(), values); err != nil {
			return err
		}
		inv.Config = cfg
		inv.Command = command
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Double-clap detector driving an LED strip",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolve(cmd, CommandRun)
		},
	}
	if out != nil {
		rootCmd.SetOut(out)
		rootCmd.SetErr(out)
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolve(cmd, CommandList)
		},
	}
	listCmd.Flags().BoolVarP(&inv.Interactive, "interactive", "i", false,
		"Pick a device and sample rate interactively and print the config snippet")
	rootCmd.AddCommand(listCmd)

	// Record command
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Capture input to a WAV file without running detection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inv.Duration < 0 {
				return fmt.Errorf("duration must not be negative")
			}
			if err := resolve(cmd, CommandRecord); err != nil {
				return err
			}
			inv.Config.Recording.Enabled = true
			return nil
		},
	}
	recordCmd.Flags().DurationVar(&inv.Duration, "duration", 0,
		"Stop recording after this long (e.g. 30s); zero records until interrupted")
	rootCmd.AddCommand(recordCmd)

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Config = nil
			inv.Command = CommandVersion
			return nil
		},
	})

	// Configuration
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&values.configPath, "config", "c", "",
		"Path to a YAML configuration file (default: ./config.yaml when present)")

	// Acquisition
	pf.StringVarP(&values.source, "source", "s", config.DefaultSource,
		"Acquisition source: portaudio, file or synthetic")
	pf.StringVar(&values.file, "file", "",
		"Audio file to replay (wav, mp3, ogg); implies --source file")
	pf.IntVarP(&values.device, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use 'list' command to see available devices.")

	// Recording
	pf.BoolVarP(&values.record, "record", "r", false,
		"Record every acquired batch to a WAV file")
	pf.StringVarP(&values.output, "output", "o", "",
		"Recording file name. Default is recordings/recording-DD-MM-YYYY-HHMMSS.wav")

	// Debug and monitor
	pf.BoolVarP(&values.verbose, "verbose", "v", false,
		"Show verbose output")
	pf.BoolVarP(&values.monitor, "monitor", "m", false,
		"Show the terminal strip monitor")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if inv.Command == CommandRun && inv.Config == nil {
		// --help or --version was handled by cobra.
		return nil, nil
	}
	return inv, nil
}

// applyFlags overrides cfg with every flag the user set, then revalidates.
func applyFlags(cfg *config.Config, flags *pflag.FlagSet, v flagValues) error {
	if flags.Changed("source") {
		cfg.Acquisition.Source = v.source
	}
	if flags.Changed("file") {
		cfg.Acquisition.File = v.file
		if !flags.Changed("source") {
			cfg.Acquisition.Source = config.SourceFile
		}
	}
	if flags.Changed("device") {
		cfg.Acquisition.Device = v.device
	}
	if flags.Changed("record") {
		cfg.Recording.Enabled = v.record
	}
	if flags.Changed("output") {
		cfg.Recording.File = v.output
	}
	if v.verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	if v.monitor {
		cfg.Monitor = true
		if !cfg.HasDriver(config.DriverMonitor) {
			cfg.Strip.Drivers = append(cfg.Strip.Drivers, config.DriverMonitor)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
