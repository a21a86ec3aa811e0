package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pgsmod/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the pgsmod configuration file",
	}
	configCmd.AddCommand(newConfigValidateCommand(ctx), newConfigInitCommand())
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := sampleTarget(targetPath)
			if err != nil {
				return err
			}
			_, statErr := os.Stat(target)
			switch {
			case statErr == nil && !overwrite:
				return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
			case statErr != nil && !errors.Is(statErr, fs.ErrNotExist):
				return fmt.Errorf("check config path: %w", statErr)
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			// The sample must load cleanly or pgsmod would refuse to start.
			cfg, _, _, err := config.Load(target)
			if err != nil {
				return fmt.Errorf("sample config at %s does not load: %w", target, err)
			}

			out := cmd.OutOrStdout()
			verb := "created"
			if statErr == nil {
				verb = "replaced"
			}
			writeReport(out, "Sample Configuration", []statusLine{
				{"Config file", statusOK, fmt.Sprintf("%s (%s)", target, verb)},
				{"Margin", statusInfo, fmt.Sprintf("%dpx", cfg.Crop.Margin)},
			}, shouldColorize(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing configuration file")
	return cmd
}

func sampleTarget(flagPath string) (string, error) {
	target := strings.TrimSpace(flagPath)
	if target == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(target)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and print the effective values",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(flagValue(ctx.configFlag))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			printEffectiveConfig(out, cfg, path, exists, shouldColorize(out))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func printEffectiveConfig(out io.Writer, cfg *config.Config, path string, exists bool, colorize bool) {
	file := statusLine{"Config file", statusOK, path}
	if !exists {
		file = statusLine{"Config file", statusWarn, path + " (missing, defaults used)"}
	}

	level := cfg.Logging.Level
	if value := strings.TrimSpace(os.Getenv(config.LogLevelEnvVar)); value != "" {
		level += " (from " + config.LogLevelEnvVar + ")"
	}
	logFile := cfg.Logging.File
	if logFile == "" {
		logFile = "stderr only"
	}

	writeReport(out, "Configuration", []statusLine{
		file,
		{"Margin", statusInfo, fmt.Sprintf("%dpx", cfg.Crop.Margin)},
		{"Log format", statusInfo, cfg.Logging.Format},
		{"Log level", statusInfo, level},
		{"Log file", statusInfo, logFile},
	}, colorize)
}
