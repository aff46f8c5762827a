package static

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// FileName returns the side-file name of a table.
func FileName(t Table, compress bool) string {
	name := t.Symbol() + ".data"
	if compress {
		name += ".zst"
	}
	return name
}

// WriteFiles writes one side file per table into dir: one tuple per line,
// comma separated. With compress set the files are zstd streams.
func WriteFiles(dir string, tables []Table, compress bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	for _, t := range tables {
		if err := writeTable(filepath.Join(dir, FileName(t, compress)), t, compress); err != nil {
			return fmt.Errorf("writing %s: %w", t.Symbol(), err)
		}
	}
	return nil
}

func writeTable(path string, t Table, compress bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	var enc *zstd.Encoder
	if compress {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("creating zstd encoder: %w", err)
		}
		w = enc
	}

	bw := bufio.NewWriter(w)
	for _, row := range t.Rows() {
		if _, err := bw.WriteString(strings.Join(row, ",") + "\n"); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("closing encoder: %w", err)
		}
	}
	return nil
}

// ReadFile reads a side file back into rows, decompressing .zst files.
func ReadFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	var rows [][]string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			rows = append(rows, strings.Split(line, ","))
		}
	}
	return rows, sc.Err()
}
