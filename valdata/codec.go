package valdata

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/klauspost/compress/zstd"

	"github.com/lattice-substrate/tz-validation/tzverr"
)

// CompressedExt marks document paths stored zstd-compressed.
const CompressedExt = ".zst"

// Load reads, decodes, and validates a document from path. Paths ending in
// CompressedExt are decompressed first.
//
//nolint:gosec // document path is explicit operator input.
func Load(path string) (*ValidationData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, tzverr.Wrap(tzverr.InvalidDocument, fmt.Sprintf("read document %q", path), err)
	}
	defer func() {
		_ = f.Close()
	}()

	var r io.Reader = f
	if strings.HasSuffix(path, CompressedExt) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, tzverr.Wrap(tzverr.InvalidDocument, fmt.Sprintf("open zstd stream %q", path), err)
		}
		defer dec.Close()
		r = dec
	}

	d, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", path, err)
	}
	return d, nil
}

// Decode strictly decodes exactly one JSON document from r and validates it.
// Unknown fields and trailing content are rejected.
func Decode(r io.Reader) (*ValidationData, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var d ValidationData
	if err := dec.Decode(&d); err != nil {
		return nil, tzverr.Wrap(tzverr.InvalidDocument, "decode document json", err)
	}
	if err := ensureSingleJSONDocument(dec); err != nil {
		return nil, tzverr.Wrap(tzverr.InvalidDocument, "decode document json", err)
	}
	if d.TestData == nil {
		d.TestData = map[string]TestEntry{}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func ensureSingleJSONDocument(dec *json.Decoder) error {
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("unexpected trailing json content")
		}
		return fmt.Errorf("decode trailing json token: %w", err)
	}
	return nil
}

// Encode returns the RFC 8785 canonical JSON form of d followed by a single LF.
func Encode(d *ValidationData) ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, tzverr.Wrap(tzverr.InternalError, "marshal document", err)
	}
	canonical, err := Canonicalize(raw)
	if err != nil {
		return nil, err
	}
	return append(canonical, '\n'), nil
}

// Canonicalize rewrites arbitrary JSON text into RFC 8785 canonical form.
func Canonicalize(raw []byte) ([]byte, error) {
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, tzverr.Wrap(tzverr.InvalidDocument, "canonicalize json", err)
	}
	return canonical, nil
}

// Digest returns the hex SHA-256 of the canonical encoding of d.
func Digest(d *ValidationData) (string, error) {
	data, err := Encode(d)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// WriteFile encodes d canonically and writes it to path atomically. Paths
// ending in CompressedExt are zstd-compressed.
func WriteFile(path string, d *ValidationData) error {
	data, err := Encode(d)
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, CompressedExt) {
		data, err = compress(data)
		if err != nil {
			return err
		}
	}
	return WriteAtomic(path, data)
}

// Write encodes d canonically to w, uncompressed.
func Write(w io.Writer, d *ValidationData) error {
	data, err := Encode(d)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return tzverr.Wrap(tzverr.InternalIO, "write document", err)
	}
	return nil
}

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, tzverr.Wrap(tzverr.InternalError, "create zstd encoder", err)
	}
	defer func() {
		_ = enc.Close()
	}()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

// WriteAtomic writes data to path using temp file + rename. On failure the
// temp file is removed and nothing is left at path.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".valdata-*.tmp")
	if err != nil {
		return tzverr.Wrap(tzverr.InternalIO, "create temp file", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return tzverr.Wrap(tzverr.InternalIO, "write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		return tzverr.Wrap(tzverr.InternalIO, "sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return tzverr.Wrap(tzverr.InternalIO, "close temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return tzverr.Wrap(tzverr.InternalIO, "rename temp to final", err)
	}
	success = true
	return nil
}
