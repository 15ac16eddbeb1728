package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/nerrad567/mixlogic-core/internal/infrastructure/config"
)

const (
	// defaultConfigPath is used when neither --config nor MIXLOGIC_CONFIG is set.
	defaultConfigPath = "configs/config.yaml"

	// configEnvVar names the environment variable holding the config path.
	configEnvVar = "MIXLOGIC_CONFIG"
)

// options holds flags shared by every command.
type options struct {
	configPath string
}

// newRootCmd builds the command tree. A fresh tree per call keeps flag
// state out of package globals, so tests can run commands independently.
func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "mixlogic",
		Short: "Adaptive DJ mixing assistant",
		Long: `MixLogic watches a live DJ session, scores track compatibility,
proposes mix decisions and learns from the DJ's feedback.

Run "mixlogic serve" to start the engine and its HTTP/WebSocket API.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"config file (default $"+configEnvVar+" or "+defaultConfigPath+")")

	root.AddCommand(
		newServeCmd(opts),
		newCompatCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}

// getConfigPath returns the configuration file path.
// The --config flag wins, then MIXLOGIC_CONFIG, then the default.
func getConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig resolves and loads the configuration. A missing file at the
// default path falls back to defaults plus environment overrides; a missing
// file the user named explicitly is an error.
func (o *options) loadConfig() (*config.Config, string, error) {
	path := getConfigPath(o.configPath)

	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if path == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
		cfg, envErr := config.FromEnv()
		if envErr != nil {
			return nil, "", fmt.Errorf("loading config from environment: %w", envErr)
		}
		return cfg, "", nil
	}
	return nil, "", fmt.Errorf("loading config: %w", err)
}
