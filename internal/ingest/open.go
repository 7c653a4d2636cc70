package ingest

import (
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// maxDownloadBytes bounds a remote candidate list.
const maxDownloadBytes = 32 << 20

// Open returns the Source for a local file or an http(s) URL. The format
// comes from the extension, or the Content-Type for URLs without one.
func Open(ctx context.Context, location string, hc *http.Client) (Source, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return fetch(ctx, location, hc)
	}

	data, err := os.ReadFile(location)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", location)
	}
	return bytesSource(formatOf(filepath.Ext(location)), data)
}

func fetch(ctx context.Context, rawURL string, hc *http.Client) (Source, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: build request")
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: fetch %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("ingest: fetch %s: status %d", rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read body")
	}

	format := formatOf(path.Ext(req.URL.Path))
	if format == "" {
		format = formatFromContentType(resp.Header.Get("Content-Type"))
	}
	zap.L().Debug("ingest: fetched candidates",
		zap.String("url", rawURL),
		zap.String("format", format),
		zap.Int("bytes", len(data)),
	)
	return bytesSource(format, data)
}

func formatOf(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func formatFromContentType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	switch mt {
	case "text/csv":
		return "csv"
	case "application/json":
		return "json"
	case "application/yaml", "application/x-yaml", "text/yaml":
		return "yaml"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return "xlsx"
	default:
		return ""
	}
}
