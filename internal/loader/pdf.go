package loader

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// loadPDF extracts plain text from every page of a PDF file. Pages that
// fail extraction are skipped rather than failing the whole document.
func loadPDF(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat pdf %s: %w", path, err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return "", fmt.Errorf("read pdf %s: %w", path, err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return b.String(), nil
}
