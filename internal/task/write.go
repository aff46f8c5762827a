package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"groundc/internal/static"
)

// Output layout inside a task directory.
const (
	DocumentFile = "problem.json"
	DataDir      = "data"
)

// WriteOptions controls how a result is written.
type WriteOptions struct {
	// Indent pretty-prints the document. Empty writes compact JSON.
	Indent string
}

// Write stores the document as problem.json and the static tables under
// data/ in dir.
func Write(dir string, res *Result, opts WriteOptions) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	data, err := Marshal(res.Document, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, DocumentFile), data, 0644); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}

	if len(res.Tables) == 0 {
		return nil
	}
	return static.WriteFiles(filepath.Join(dir, DataDir), res.Tables, res.Compressed)
}

// Marshal encodes a document the way Write stores it.
func Marshal(doc *Document, opts WriteOptions) ([]byte, error) {
	var data []byte
	var err error
	if opts.Indent != "" {
		data, err = json.MarshalIndent(doc, "", opts.Indent)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return append(data, '\n'), nil
}

// ReadDocument loads a previously written problem.json.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &doc, nil
}
