// SPDX-License-Identifier: MIT

// Package matrix - plain text exchange formats.
//
// Matrices: one row per line, values separated by a single space, Sentinel
// rendered as "-". Index lists: whitespace-separated non-negative integers,
// written one per line.

package matrix

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	sentinelToken = "-"
	maxLineBytes  = 64 << 20
)

// WriteText writes m as whitespace text.
func WriteText(w io.Writer, m *Dense) error {
	if m == nil {
		return ErrNilMatrix
	}
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 32)
	var i, j int
	for i = 0; i < m.r; i++ {
		for j = 0; j < m.c; j++ {
			if j > 0 {
				_ = bw.WriteByte(' ')
			}
			v := m.data[i*m.c+j]
			if v == Sentinel {
				_, _ = bw.WriteString(sentinelToken)
				continue
			}
			buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
			_, _ = bw.Write(buf)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ReadText parses a whitespace text matrix. Blank lines are skipped; the
// column count is taken from the first non-blank line and every other line
// must match it.
//
// Errors: ErrMalformedText for unparsable tokens or ragged rows.
func ReadText(r io.Reader) (*Dense, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		data []float64
		rows int
		cols = -1
		line int
	)
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if cols < 0 {
			cols = len(fields)
		} else if len(fields) != cols {
			return nil, fmt.Errorf("%w: line %d has %d values, want %d", ErrMalformedText, line, len(fields), cols)
		}
		var tok string
		for _, tok = range fields {
			if tok == sentinelToken {
				data = append(data, Sentinel)
				continue
			}
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %q", ErrMalformedText, line, tok)
			}
			data = append(data, v)
		}
		rows++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if cols < 0 {
		return newDense(0, 0), nil
	}

	return &Dense{r: rows, c: cols, data: data, eps: DefaultEqualityLimit}, nil
}

// WriteIndices writes one index per line.
func WriteIndices(w io.Writer, idx []int) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 20)
	var v int
	for _, v = range idx {
		buf = strconv.AppendInt(buf[:0], int64(v), 10)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ReadIndices reads whitespace-separated non-negative integers.
//
// Errors: ErrMalformedText for non-integer or negative tokens.
func ReadIndices(r io.Reader) ([]int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	sc.Split(bufio.ScanWords)

	var out []int
	for sc.Scan() {
		v, err := strconv.Atoi(sc.Text())
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: index %q", ErrMalformedText, sc.Text())
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
