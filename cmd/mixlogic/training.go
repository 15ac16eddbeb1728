package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/mixlogic-core/internal/training"
)

func newExportCmd(opts *options) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export saved training state as JSON or CBOR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc, err := snapshotFormat(format, output)
			if err != nil {
				return err
			}
			cfg, _, err := opts.loadConfig()
			if err != nil {
				return err
			}

			db, err := openDatabase(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // read-only use

			manager, err := newManager(cfg, nil)
			if err != nil {
				return err
			}
			defer manager.Close()

			cp, err := newCheckpointer(db, cfg.Training.SnapshotEncoding)
			if err != nil {
				return err
			}
			restored, err := cp.Restore(cmd.Context(), manager)
			if err != nil {
				return fmt.Errorf("restoring training state: %w", err)
			}
			if !restored {
				fmt.Fprintln(cmd.ErrOrStderr(), "no saved training state, exporting defaults")
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return training.Encode(w, manager.ExportTrainingData(), enc)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "json or cbor (default from the output extension, else json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace saved training state with an exported snapshot",
		Long: `Replace the training state stored in the database with a snapshot
previously written by "mixlogic export" or GET /api/v1/training/export.
Run this while the server is stopped; a running server overwrites the
state at its next checkpoint.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			enc, err := snapshotFormat(format, path)
			if err != nil {
				return err
			}
			cfg, _, err := opts.loadConfig()
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening snapshot: %w", err)
			}
			defer f.Close()
			snap, err := training.Decode(f, enc)
			if err != nil {
				return err
			}

			db, err := openDatabase(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // Save reports write errors

			manager, err := newManager(cfg, nil)
			if err != nil {
				return err
			}
			defer manager.Close()

			if err := manager.ImportTrainingData(snap); err != nil {
				return fmt.Errorf("importing snapshot: %w", err)
			}
			cp, err := newCheckpointer(db, cfg.Training.SnapshotEncoding)
			if err != nil {
				return err
			}
			if err := cp.Save(cmd.Context(), manager); err != nil {
				return err
			}

			st := manager.Status()
			fmt.Fprintf(cmd.OutOrStdout(), "imported training state: mode=%s decisions=%d accuracy=%.2f\n",
				st.Mode, st.TotalDecisions, st.Accuracy)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "json or cbor (default from the file extension, else json)")
	return cmd
}

// snapshotFormat picks the snapshot encoding: an explicit --format wins,
// then a .cbor or .json extension on path, then JSON.
func snapshotFormat(format, path string) (training.Encoding, error) {
	if format != "" {
		return training.ParseEncoding(format)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbor":
		return training.EncodingCBOR, nil
	default:
		return training.EncodingJSON, nil
	}
}
