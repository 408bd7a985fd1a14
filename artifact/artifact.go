// Package artifact stores matrices and index lists as files.
//
// The payload is the plain text format of package matrix. The file
// extension selects a compression layer: ".zst" is zstd, ".lz4" is an lz4
// frame, anything else is stored as is. Writers create missing parent
// directories and replace the target atomically through a temporary file
// in the same directory.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hsisomap/hsisomap/matrix"
)

// Sentinel errors.
var (
	// ErrNotExist indicates a missing artifact file.
	ErrNotExist = errors.New("artifact: file does not exist")

	// ErrEmptyPath indicates an empty file name.
	ErrEmptyPath = errors.New("artifact: empty path")
)

// Compression identifies the layer between the text payload and the file.
type Compression uint8

const (
	// CompressionNone stores plain text.
	CompressionNone Compression = iota
	// CompressionZstd stores a zstd stream.
	CompressionZstd
	// CompressionLZ4 stores an lz4 frame.
	CompressionLZ4
)

// String implements fmt.Stringer.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// CompressionFor returns the compression implied by the extension of path.
func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return CompressionZstd
	case ".lz4":
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

// ReadMatrix loads a matrix file.
func ReadMatrix(path string) (*matrix.Dense, error) {
	var m *matrix.Dense
	err := read(path, func(r io.Reader) error {
		var err error
		m, err = matrix.ReadText(r)
		return err
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// WriteMatrix stores m at path.
func WriteMatrix(path string, m *matrix.Dense) error {
	if m == nil {
		return matrix.ErrNilMatrix
	}
	return write(path, func(w io.Writer) error { return matrix.WriteText(w, m) })
}

// ReadIndices loads an index list file.
func ReadIndices(path string) ([]int, error) {
	var idx []int
	err := read(path, func(r io.Reader) error {
		var err error
		idx, err = matrix.ReadIndices(r)
		return err
	})
	if err != nil {
		return nil, err
	}

	return idx, nil
}

// WriteIndices stores idx at path, one index per line.
func WriteIndices(path string, idx []int) error {
	return write(path, func(w io.Writer) error { return matrix.WriteIndices(w, idx) })
}

// WriteIndexGroups stores one line of space-separated indices per group.
func WriteIndexGroups(path string, groups [][]int) error {
	return write(path, func(w io.Writer) error {
		var sb strings.Builder
		var g, i int
		for g = range groups {
			sb.Reset()
			for i = range groups[g] {
				if i > 0 {
					sb.WriteByte(' ')
				}
				fmt.Fprint(&sb, groups[g][i])
			}
			sb.WriteByte('\n')
			if _, err := io.WriteString(w, sb.String()); err != nil {
				return err
			}
		}
		return nil
	})
}

// read opens path, unwraps its compression layer and hands the payload to
// decode.
func read(path string, decode func(io.Reader) error) error {
	if path == "" {
		return ErrEmptyPath
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return fmt.Errorf("artifact: open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	switch CompressionFor(path) {
	case CompressionZstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("artifact: zstd reader %s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	case CompressionLZ4:
		r = lz4.NewReader(f)
	}
	if err = decode(r); err != nil {
		return fmt.Errorf("artifact: read %s: %w", path, err)
	}

	return nil
}

// write encodes into a temporary sibling of path and renames it into place.
func write(path string, encode func(io.Writer) error) (err error) {
	if path == "" {
		return ErrEmptyPath
	}
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifact: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("artifact: create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	// 1) Payload through the compression layer.
	var (
		w     io.Writer = tmp
		layer io.WriteCloser
	)
	switch CompressionFor(path) {
	case CompressionZstd:
		if layer, err = zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedDefault)); err != nil {
			return fmt.Errorf("artifact: zstd writer %s: %w", path, err)
		}
		w = layer
	case CompressionLZ4:
		layer = lz4.NewWriter(tmp)
		w = layer
	}
	if err = encode(w); err != nil {
		return fmt.Errorf("artifact: write %s: %w", path, err)
	}
	if layer != nil {
		if err = layer.Close(); err != nil {
			return fmt.Errorf("artifact: flush %s: %w", path, err)
		}
	}

	// 2) Commit.
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("artifact: close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("artifact: rename %s: %w", path, err)
	}

	return nil
}
