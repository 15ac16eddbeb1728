package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/mixlogic-core/internal/api"
	"github.com/nerrad567/mixlogic-core/internal/compat"
	"github.com/nerrad567/mixlogic-core/internal/track"
)

func newCompatCmd(opts *options) *cobra.Command {
	var libraryPath string

	cmd := &cobra.Command{
		Use:   "compat FROM_ID TO_ID",
		Short: "Score how well one library track mixes into another",
		Long: `Score the transition from one track to another using the configured
decision weights. Tracks are looked up by ID in the track library, and the
per-factor report is printed as JSON.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if libraryPath == "" {
				libraryPath = cfg.Library.Path
			}
			if libraryPath == "" {
				return errors.New("no track library: set library.path or pass --library")
			}

			library, err := track.LoadLibrary(libraryPath)
			if err != nil {
				return fmt.Errorf("loading track library: %w", err)
			}
			weights, err := buildWeights(cfg.Engine.Weights)
			if err != nil {
				return err
			}

			from, err := library.Get(args[0])
			if err != nil {
				return err
			}
			to, err := library.Get(args[1])
			if err != nil {
				return err
			}

			resp := api.CompatibilityResponse{
				From:   from,
				To:     to,
				Report: compat.NewAnalyzer(weights).Compatibility(from, to),
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVarP(&libraryPath, "library", "l", "", "track library YAML (default library.path from config)")
	return cmd
}
