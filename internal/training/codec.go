package training

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Encoding names a snapshot serialisation.
type Encoding string

// Supported encodings.
const (
	EncodingJSON Encoding = "json"
	EncodingCBOR Encoding = "cbor"
)

// ParseEncoding converts a string to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch e := Encoding(s); e {
	case EncodingJSON, EncodingCBOR:
		return e, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEncoding, s)
	}
}

// cborEnc uses Core Deterministic Encoding (RFC 8949 §4.2) so the same
// snapshot always produces the same bytes. Times are RFC 3339 strings with
// nanoseconds so they survive a round trip.
var cborEnc cbor.EncMode

var cborDec cbor.DecMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano

	var err error
	cborEnc, err = opts.EncMode()
	if err != nil {
		panic("training: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("training: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes a snapshot.
func Marshal(snap Snapshot, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingJSON:
		return json.Marshal(snap)
	case EncodingCBOR:
		return cborEnc.Marshal(snap)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, enc)
	}
}

// Unmarshal decodes a snapshot.
func Unmarshal(data []byte, enc Encoding) (Snapshot, error) {
	var snap Snapshot
	var err error
	switch enc {
	case EncodingJSON:
		err = json.Unmarshal(data, &snap)
	case EncodingCBOR:
		err = cborDec.Unmarshal(data, &snap)
	default:
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, enc)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("decoding %s snapshot: %w", enc, err)
	}
	return snap, nil
}

// Encode writes a snapshot to w.
func Encode(w io.Writer, snap Snapshot, enc Encoding) error {
	data, err := Marshal(snap, enc)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Decode reads a snapshot from r.
func Decode(r io.Reader, enc Encoding) (Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading snapshot: %w", err)
	}
	return Unmarshal(data, enc)
}
