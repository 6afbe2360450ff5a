// ABOUTME: DirectoryLoader reads .txt, .md and .pdf files from a single directory
// ABOUTME: PDFs load one Document per non-blank page; unreadable files are logged and skipped
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/docqa/internal/models"
	"github.com/ledongthuc/pdf"
)

// SupportedExtensions lists the file extensions the loader reads
var SupportedExtensions = []string{".txt", ".md", ".pdf"}

// DirectoryLoader loads documents from the top level of a directory
type DirectoryLoader struct {
	logger *log.Logger
}

// NewDirectoryLoader creates a loader that reports skipped files to logger
func NewDirectoryLoader(logger *log.Logger) *DirectoryLoader {
	if logger == nil {
		logger = log.Default()
	}
	return &DirectoryLoader{logger: logger.WithPrefix("loader")}
}

// Load returns the documents found in dir, in file name order.
// A missing or unreadable directory is an error; individual bad files are not.
func (l *DirectoryLoader) Load(ctx context.Context, dir string) ([]models.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents directory %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var docs []models.Document
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".pdf":
			pages, err := loadPDF(path)
			if err != nil {
				l.logger.Warn("skipping unreadable PDF", "file", entry.Name(), "err", err)
				continue
			}
			docs = append(docs, pages...)
		case ".txt", ".md":
			doc, err := loadText(path)
			if err != nil {
				l.logger.Warn("skipping unreadable text file", "file", entry.Name(), "err", err)
				continue
			}
			docs = append(docs, doc)
		default:
			l.logger.Debug("ignoring unsupported file", "file", entry.Name())
		}
	}

	l.logger.Info("loaded documents", "dir", dir, "documents", len(docs))
	return docs, nil
}

func loadText(path string) (models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, err
	}
	return models.Document{
		Content:  string(data),
		Metadata: models.Metadata{Source: filepath.Base(path)},
	}, nil
}

func loadPDF(path string) (docs []models.Document, err error) {
	// The PDF parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	source := filepath.Base(path)
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, models.Document{
			Content:  text,
			Metadata: models.Metadata{Source: source, Page: models.IntPtr(i)},
		})
	}
	return docs, nil
}
