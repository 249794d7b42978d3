package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// MediaType is the content type of an exported laudo.
const MediaType = "text/markdown; charset=utf-8"

const filePrefix = "laudo_pericial_"

// Raw HTML in model output is escaped, not passed through.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// FileName returns the timestamped name used for downloads and saved files.
func FileName(now time.Time) string {
	return filePrefix + now.Format("20060102_150405") + ".md"
}

// WriteDocument saves doc verbatim under dir and returns the file path.
func WriteDocument(dir, doc string, now time.Time) (string, error) {
	if doc == "" {
		return "", errors.New("export: document is empty")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return path, nil
}

// ToHTML renders Markdown for the web page.
func ToHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
