package ragpipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

type ingestFilesRequest struct {
	FilePaths   []string `json:"file_paths"`
	SourceNames []string `json:"source_names,omitempty"`
}

// IngestFiles ingests files by path on the server's filesystem.
// sourceNames optionally overrides the source label per file; nil uses
// the base file names.
func (c *Client) IngestFiles(ctx context.Context, filePaths, sourceNames []string) (report IngestReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest_files", start, err) }()

	err = c.postJSON(ctx, "/ingest/files",
		ingestFilesRequest{FilePaths: filePaths, SourceNames: sourceNames}, &report)
	return report, err
}

type ingestDirectoryRequest struct {
	DirectoryPath string `json:"directory_path"`
}

// IngestDirectory ingests every supported file under a directory on the
// server's filesystem.
func (c *Client) IngestDirectory(ctx context.Context, dir string) (report IngestReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest_directory", start, err) }()

	err = c.postJSON(ctx, "/ingest/directory", ingestDirectoryRequest{DirectoryPath: dir}, &report)
	return report, err
}

// UploadFile is one file to send with Upload. Name becomes the source
// label and selects the loader by extension.
type UploadFile struct {
	Name   string
	Reader io.Reader
}

// Upload sends file contents to the server for ingestion.
func (c *Client) Upload(ctx context.Context, files []UploadFile) (report IngestReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("upload", start, err) }()

	if len(files) == 0 {
		return IngestReport{}, errors.New("ragpipe: at least one file required")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, werr := mw.CreateFormFile("files", f.Name)
		if werr != nil {
			return IngestReport{}, fmt.Errorf("ragpipe: build multipart form: %w", werr)
		}
		if _, werr := io.Copy(part, f.Reader); werr != nil {
			return IngestReport{}, fmt.Errorf("ragpipe: read %s: %w", f.Name, werr)
		}
	}
	if werr := mw.Close(); werr != nil {
		return IngestReport{}, fmt.Errorf("ragpipe: build multipart form: %w", werr)
	}

	req, rerr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ingest/upload", &body)
	if rerr != nil {
		return IngestReport{}, fmt.Errorf("ragpipe: build request: %w", rerr)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	err = c.do(req, &report)
	return report, err
}

// UploadPaths uploads local files by path.
func (c *Client) UploadPaths(ctx context.Context, paths ...string) (IngestReport, error) {
	files := make([]UploadFile, 0, len(paths))
	handles := make([]*os.File, 0, len(paths))
	defer func() {
		for _, h := range handles {
			_ = h.Close()
		}
	}()

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return IngestReport{}, fmt.Errorf("ragpipe: open %s: %w", p, err)
		}
		handles = append(handles, f)
		files = append(files, UploadFile{Name: filepath.Base(p), Reader: f})
	}
	return c.Upload(ctx, files)
}

// RemoveSource deletes every chunk ingested from the given source.
func (c *Client) RemoveSource(ctx context.Context, source string) (result RemoveResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("remove_source", start, err) }()

	err = c.delete(ctx, "/sources/"+url.PathEscape(source), &result)
	return result, err
}

// Reset drops every indexed document and recreates the index.
func (c *Client) Reset(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("reset", start, err) }()

	return c.postJSON(ctx, "/reset", nil, nil)
}

// Stats returns document counts and the pipeline settings.
func (c *Client) Stats(ctx context.Context) (stats Stats, err error) {
	start := time.Now()
	defer func() { c.obs.observe("stats", start, err) }()

	err = c.get(ctx, "/stats", nil, &stats)
	return stats, err
}
