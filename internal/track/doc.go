// Package track defines the immutable Track value consumed by the mixing engine,
// the harmonic key wheel used for key compatibility, and a YAML-backed track
// library.
//
// Tracks arrive with BPM, key, energy and genre already computed by an external
// analyser. This package never decodes audio; it only validates what it is given
// so that invalid numbers never reach the scoring code.
//
// # Key Types
//
//   - Track: validated track metadata (construct with New)
//   - Key: position on the 12 × 2 harmonic wheel (Camelot notation)
//   - Library: in-memory track source loaded from YAML
//
// # Usage
//
//	lib, err := track.LoadLibrary("configs/library.yaml")
//	if err != nil {
//	    return err
//	}
//	t, ok := lib.Get("trk-001")
package track
