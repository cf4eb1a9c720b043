package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/paraprep/internal/core"
)

// CSVFileSink writes a table to a file, replacing any previous output.
type CSVFileSink struct {
	path string
}

// CSVFile returns a sink writing delimited text to path.
func CSVFile(path string) *CSVFileSink {
	return &CSVFileSink{path: path}
}

// Name implements prepare.Sink.
func (s *CSVFileSink) Name() string { return "csv:" + s.path }

// Path returns the output path.
func (s *CSVFileSink) Path() string { return s.path }

// Write creates the parent directory and writes t to a temporary file
// that is renamed over the output, so a failed write never leaves a
// truncated file behind.
func (s *CSVFileSink) Write(ctx context.Context, t *core.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := core.WriteCSV(tmp, t); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// CSVSink streams a table to a writer.
type CSVSink struct {
	w    io.Writer
	name string
}

// CSV returns a sink writing delimited text to w.
func CSV(w io.Writer) *CSVSink {
	return &CSVSink{w: w, name: "csv"}
}

// Name implements prepare.Sink.
func (s *CSVSink) Name() string { return s.name }

// Write implements prepare.Sink.
func (s *CSVSink) Write(ctx context.Context, t *core.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return core.WriteCSV(s.w, t)
}
