package stepconf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	fileScheme = "file://"
)

// FileProvider opens a file input given either as a local path (optionally with the
// `file://` scheme or a glob pattern matching exactly one file) or as a remote
// http(s) URL.
type FileProvider interface {
	// Contents returns a streaming reader for the file contents and the file's base name.
	// The caller is responsible for closing the returned io.ReadCloser.
	Contents(ctx context.Context, srcPath string) (io.ReadCloser, string, error)
}

// Downloader fetches remote file contents.
type Downloader interface {
	Get(ctx context.Context, source string) (io.ReadCloser, error)
}

type fileProvider struct {
	downloader   Downloader
	pathModifier pathutil.PathModifier
}

// NewFileProvider ...
func NewFileProvider(downloader Downloader, pathModifier pathutil.PathModifier) FileProvider {
	return &fileProvider{
		downloader:   downloader,
		pathModifier: pathModifier,
	}
}

// Contents ...
func (f *fileProvider) Contents(ctx context.Context, srcPath string) (io.ReadCloser, string, error) {
	if isRemote(srcPath) {
		fileName, err := fileNameFromURL(srcPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to extract filename from URL %s: %w", srcPath, err)
		}

		reader, err := f.downloader.Get(ctx, srcPath)
		if err != nil {
			return nil, "", err
		}
		return reader, fileName, nil
	}

	localPath, err := f.localPath(srcPath)
	if err != nil {
		return nil, "", err
	}

	file, err := os.Open(localPath)
	if err != nil {
		return nil, "", err
	}
	return file, filepath.Base(localPath), nil
}

// localPath removes the file:// prefix, makes the path absolute and expands a glob
// pattern into its single match.
func (f *fileProvider) localPath(path string) (string, error) {
	pth := strings.TrimPrefix(path, fileScheme)
	if !strings.ContainsAny(pth, "*?[{") {
		return f.pathModifier.AbsPath(pth)
	}

	base, pattern := doublestar.SplitPattern(pth)
	absBase, err := f.pathModifier.AbsPath(base)
	if err != nil {
		return "", err
	}

	matches, err := doublestar.Glob(os.DirFS(absBase), pattern, doublestar.WithNoFollow(), doublestar.WithFilesOnly())
	if err != nil {
		return "", fmt.Errorf("invalid path pattern %s: %w", path, err)
	}
	if len(matches) != 1 {
		return "", fmt.Errorf("path pattern %s must match exactly one file, matched %d", path, len(matches))
	}

	return filepath.Join(absBase, matches[0]), nil
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

func fileNameFromURL(urlPath string) (string, error) {
	parsedURL, err := url.Parse(urlPath)
	if err != nil {
		return "", err
	}

	name := filepath.Base(parsedURL.Path)
	if name == "." || name == "/" {
		return "", nil
	}
	return name, nil
}

type httpDownloader struct {
	client *retryablehttp.Client
}

// NewDownloader returns a Downloader that fetches with automatic retries.
func NewDownloader(logger log.Logger) Downloader {
	return httpDownloader{client: retryhttp.NewClient(logger)}
}

// Get ...
func (d httpDownloader) Get(ctx context.Context, source string) (io.ReadCloser, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file from %s: %w", source, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to download file from %s: status code %d", source, resp.StatusCode)
	}

	return resp.Body, nil
}
