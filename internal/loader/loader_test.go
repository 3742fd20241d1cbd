package loader

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ragpipe/ragpipe/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_Text(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt", "plain text body")

	got, err := New(0).Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "plain text body" {
		t.Errorf("got %q", got)
	}
}

func TestLoad_Markdown(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.md", "# Title\n\nBody")

	got, err := New(0).Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "Body") {
		t.Errorf("got %q", got)
	}
}

func TestLoad_HTML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "page.html",
		`<html><head><style>p{color:red}</style><script>alert(1)</script></head>`+
			`<body><p>visible text</p></body></html>`)

	got, err := New(0).Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "visible text") {
		t.Errorf("text missing: %q", got)
	}
	if strings.Contains(got, "alert") || strings.Contains(got, "color") {
		t.Errorf("script/style leaked: %q", got)
	}
}

func TestLoad_DOCX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.docx")
	writeDOCX(t, path,
		`<?xml version="1.0"?><w:document xmlns:w="ns"><w:body>`+
			`<w:p><w:r><w:t>first paragraph</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>second</w:t><w:t> paragraph</w:t></w:r></w:p>`+
			`</w:body></w:document>`)

	got, err := New(0).Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "first paragraph") || !strings.Contains(got, "second paragraph") {
		t.Errorf("paragraphs missing: %q", got)
	}
}

func writeDOCX(t *testing.T, path, documentXML string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create docx: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "archive.tar", "binary")

	_, err := New(0).Load(path)
	if !errors.Is(err, domain.ErrUnsupportedFileType) {
		t.Errorf("got %v, want ErrUnsupportedFileType", err)
	}
}

func TestLoad_EmptyDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.txt", "   \n\t ")

	_, err := New(0).Load(path)
	if !errors.Is(err, domain.ErrEmptyDocument) {
		t.Errorf("got %v, want ErrEmptyDocument", err)
	}
}

func TestLoad_TooLarge(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.txt", strings.Repeat("a", 100))

	_, err := New(10).Load(path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("got %v, want size error", err)
	}
}

func TestDirectory_FiltersSupported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "a")
	writeFile(t, dir, "b.bin", "b")
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o700); err != nil {
		t.Fatal(err)
	}
	writeFile(t, sub, "c.html", "<p>c</p>")

	files, err := New(0).Directory(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files %v, want 2", len(files), files)
	}
}

func TestDirectory_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "a")

	if _, err := New(0).Directory(path); err == nil {
		t.Error("expected error for non-directory")
	}
}

func TestSupported(t *testing.T) {
	cases := map[string]bool{
		"doc.txt":  true,
		"doc.PDF":  true,
		"doc.docx": true,
		"doc.htm":  true,
		"doc.exe":  false,
		"doc":      false,
	}
	for path, want := range cases {
		if got := Supported(path); got != want {
			t.Errorf("Supported(%q) = %v, want %v", path, got, want)
		}
	}
}
