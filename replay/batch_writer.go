package replay

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// BatchFile is a finalized batch archive and the matches it holds, in write
// order.
type BatchFile struct {
	Path    string
	Rows    int
	Matches []Metadata
}

// BatchWriter streams many matches into one Parquet file. The file is built
// under outDir/tmp, which the archive index ignores, and only appears in
// outDir once Finalize succeeds.
type BatchWriter struct {
	tmpPath string
	outPath string
	file    *os.File
	writer  *parquet.GenericWriter[TurnRow]
	rows    int
	matches []Metadata
}

func NewBatchWriter(outDir string) (*BatchWriter, error) {
	if outDir == "" {
		return nil, errors.New("batch writer needs an output dir")
	}
	if abs, err := filepath.Abs(outDir); err == nil {
		outDir = abs
	}
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := BatchName()
	b := &BatchWriter{
		tmpPath: filepath.Join(tmpDir, name),
		outPath: filepath.Join(outDir, name),
	}
	f, err := os.Create(b.tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create batch file: %w", err)
	}
	b.file = f
	b.writer = parquet.NewGenericWriter[TurnRow](f, writerOptions()...)
	return b, nil
}

func (b *BatchWriter) TmpPath() string { return b.tmpPath }
func (b *BatchWriter) OutPath() string { return b.outPath }
func (b *BatchWriter) Matches() int    { return len(b.matches) }
func (b *BatchWriter) Rows() int       { return b.rows }

// Write appends every turn of rep.
func (b *BatchWriter) Write(rep Replay) error {
	if b.writer == nil {
		return errors.New("batch writer is closed")
	}
	rows, err := Rows(rep)
	if err != nil {
		return fmt.Errorf("match %s: %w", rep.Metadata.MatchID, err)
	}
	if _, err := b.writer.Write(rows); err != nil {
		return fmt.Errorf("write match %s: %w", rep.Metadata.MatchID, err)
	}
	b.rows += len(rows)
	b.matches = append(b.matches, rep.Metadata)
	return nil
}

// Finalize publishes the batch. A batch without matches leaves no file and
// returns a zero BatchFile. Calling it again is a no-op.
func (b *BatchWriter) Finalize() (BatchFile, error) {
	if b.writer == nil {
		return BatchFile{}, nil
	}
	err := errors.Join(b.writer.Close(), b.file.Sync(), b.file.Close())
	b.writer, b.file = nil, nil
	if err != nil {
		_ = os.Remove(b.tmpPath)
		return BatchFile{}, fmt.Errorf("close batch %s: %w", filepath.Base(b.tmpPath), err)
	}
	if len(b.matches) == 0 {
		return BatchFile{}, os.Remove(b.tmpPath)
	}
	if err := os.Rename(b.tmpPath, b.outPath); err != nil {
		return BatchFile{}, fmt.Errorf("publish batch: %w", err)
	}
	return BatchFile{Path: b.outPath, Rows: b.rows, Matches: b.matches}, nil
}
