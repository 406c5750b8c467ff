package lsp

import (
	"net/url"
	"path/filepath"
	"strings"

	"go.lsp.dev/uri"
)

// documentPath maps a document URI to an absolute local path. Anything that
// is not a file URI yields "" and the document is ignored.
func documentPath(u uri.URI) string {
	if !strings.HasPrefix(strings.ToLower(string(u)), uri.FileScheme+"://") {
		return ""
	}
	if _, err := url.ParseRequestURI(string(u)); err != nil {
		return ""
	}
	path := u.Filename()
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// documentURI is the inverse of documentPath.
func documentURI(path string) uri.URI {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return uri.File(path)
}
