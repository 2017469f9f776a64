package knowledge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Builder writes the criteria files and the fine-tuning dataset.
type Builder struct {
	Dir          string
	DatasetPath  string
	TokenizerDir string
	Logger       *slog.Logger
}

// Result describes what a build wrote.
type Result struct {
	Documents []string
	Dataset   string
	Records   int
	EOS       string
}

// Build overwrites every output.  Any I/O error aborts the run.
func (b *Builder) Build(ctx context.Context) (Result, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	eos, err := LoadEOS(b.TokenizerDir)
	if err != nil {
		return Result{}, fmt.Errorf("loading end-of-text token: %w", err)
	}

	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating %s: %w", b.Dir, err)
	}
	res := Result{Dataset: b.DatasetPath, EOS: eos}
	for _, doc := range Documents() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		path := filepath.Join(b.Dir, doc.Name)
		if err := os.WriteFile(path, []byte(doc.Text), 0o644); err != nil {
			return Result{}, fmt.Errorf("writing %s: %w", path, err)
		}
		res.Documents = append(res.Documents, path)
	}
	logger.InfoContext(ctx, "knowledge base written", "dir", b.Dir, "documents", len(res.Documents))

	records := Records()
	if err := writeDataset(b.DatasetPath, records, eos); err != nil {
		return Result{}, err
	}
	res.Records = len(records)
	logger.InfoContext(ctx, "fine-tuning dataset written", "path", b.DatasetPath, "records", res.Records)
	return res, nil
}

// writeDataset writes one {"text": ...} object per line, with non-ASCII
// characters left as UTF-8.
func writeDataset(path string, records []Record, eos string) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		line := struct {
			Text string `json:"text"`
		}{r.Format() + eos}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
