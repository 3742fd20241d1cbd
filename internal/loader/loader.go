// Package loader extracts plain text from source files. Each supported
// extension has a dedicated extractor; Directory walks a tree and collects
// every file a loader exists for.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ragpipe/ragpipe/internal/domain"
)

// Loader dispatches text extraction by file extension.
type Loader struct {
	maxFileSize int64
}

// DefaultMaxFileSize caps a single input file at 50MB.
const DefaultMaxFileSize = 50 << 20

// New creates a Loader. maxFileSize <= 0 falls back to DefaultMaxFileSize.
func New(maxFileSize int64) *Loader {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Loader{maxFileSize: maxFileSize}
}

// supportedExtensions mirrors the ingestion surface: plain text, markdown,
// PDF, Word and HTML.
var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".pdf":  true,
	".docx": true,
	".html": true,
	".htm":  true,
}

// Supported reports whether a loader exists for the file's extension.
func Supported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Load extracts text from a single file.
func (l *Loader) Load(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > l.maxFileSize {
		return "", fmt.Errorf("file %s too large (%d bytes, max %d)", path, info.Size(), l.maxFileSize)
	}

	var text string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md":
		text, err = loadText(path)
	case ".pdf":
		text, err = loadPDF(path)
	case ".docx":
		text, err = loadDOCX(path)
	case ".html", ".htm":
		text, err = loadHTML(path)
	default:
		return "", fmt.Errorf("%s: %w", ext, domain.ErrUnsupportedFileType)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", path, domain.ErrEmptyDocument)
	}
	return text, nil
}

// Directory returns the supported files under root, recursively, in walk order.
func (l *Loader) Directory(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

func loadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
