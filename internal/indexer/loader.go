package indexer

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"triage-assistant/pkg"
)

// LoadDocuments reads every .txt file under root, recursively, as one
// document each, ordered by path.  A missing root yields no documents.
func LoadDocuments(fsys fs.FS, root string) ([]pkg.Document, error) {
	var docs []pkg.Document
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.EqualFold(path.Ext(p), ".txt") {
			return nil
		}
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		rel := p
		if root != "." {
			rel = strings.TrimPrefix(p, root+"/")
		}
		docs = append(docs, pkg.Document{ID: rel, Path: p, Content: string(content)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}
