// Package docload loads cleaned transcript documents from disk. The ETL
// step that extracts and cleans the press-conference PDFs writes one JSON
// array of documents per transcript; this package is the read side of that
// contract.
package docload

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kart-io/logger"

	"github.com/fedscope/fedscope/internal/model"
	"github.com/fedscope/fedscope/pkg/utils/json"
)

// LoadDirectory loads every .json file under dir, sorted by file name so
// repeated loads produce documents in the same order.
func LoadDirectory(dir string) ([]model.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("docload: reading directory %q: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("docload: no document files in %q", dir)
	}

	var docs []model.Document
	for _, file := range files {
		fileDocs, err := LoadFile(file)
		if err != nil {
			return nil, err
		}
		docs = append(docs, fileDocs...)
	}

	logger.Infow("loaded transcript documents",
		"dir", dir,
		"files", len(files),
		"documents", len(docs),
	)
	return docs, nil
}

// LoadFile loads one JSON array of documents.
func LoadFile(path string) ([]model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docload: reading %q: %w", path, err)
	}

	var docs []model.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("docload: decoding %q: %w", path, err)
	}

	for i, doc := range docs {
		if strings.TrimSpace(doc.Content) == "" {
			return nil, fmt.Errorf("docload: %q document %d has empty content", path, i)
		}
		if doc.Metadata.CreationDate == "" {
			return nil, fmt.Errorf("docload: %q document %d is missing creation_date", path, i)
		}
		if doc.Metadata.TotalPages <= 0 {
			return nil, fmt.Errorf("docload: %q document %d has invalid total_pages %d", path, i, doc.Metadata.TotalPages)
		}
	}

	return docs, nil
}
