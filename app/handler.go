package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const indexFile = "index.html"

// serveRequest writes the response for req. It returns the status sent and
// any error worth logging; error responses themselves are not errors.
func serveRequest(w io.Writer, cfg *Config, req *HTTPRequest) (StatusCode, error) {
	bw := bufio.NewWriterSize(w, sendChunkSize)
	err := dispatch(bw, cfg, req)

	status := StatusOK
	var serr *statusError
	if errors.As(err, &serr) {
		status = serr.status
		err = serr.err
	}
	if flushErr := bw.Flush(); err == nil && flushErr != nil {
		err = fmt.Errorf("can't send %s: %w", status, flushErr)
	}
	return status, err
}

func dispatch(w io.Writer, cfg *Config, req *HTTPRequest) error {
	var headOnly bool
	switch req.Method {
	case MethodGet:
	case MethodHead:
		headOnly = true
	default:
		return respondError(w, StatusMethodNotAllowed, "Only GET and HEAD are supported.", nil)
	}

	if !hasPrefixFold(req.Version, "HTTP/") {
		return respondError(w, StatusBadRequest, "Invalid HTTP version.", nil)
	}
	if !strings.HasPrefix(req.Path, "/") {
		return respondError(w, StatusBadRequest, "Invalid request path.", nil)
	}

	fsPath, err := resolvePath(cfg, req.Path)
	switch {
	case errors.Is(err, errBadRequest):
		return respondError(w, StatusBadRequest, "Invalid percent-encoding in request path.", nil)
	case errors.Is(err, errNotFound):
		return respondError(w, StatusNotFound, "The requested resource was not found.", nil)
	case err != nil:
		return respondError(w, StatusForbidden, "Access denied.", nil)
	}

	if info, err := os.Stat(fsPath); err == nil && info.IsDir() {
		index, err := containedPath(cfg, filepath.Join(fsPath, indexFile))
		switch {
		case err == nil:
			return serveFile(w, index, headOnly)
		case errors.Is(err, errForbidden):
			return respondError(w, StatusForbidden, "Access denied.", nil)
		}
		urlPath := req.Path
		if i := strings.IndexAny(urlPath, "?#"); i >= 0 {
			urlPath = urlPath[:i]
		}
		return listDirectory(w, urlPath, fsPath)
	}

	return serveFile(w, fsPath, headOnly)
}

// statusError records the status a response was sent with, or was being
// sent with when writing failed. err is the cause, if any.
type statusError struct {
	status StatusCode
	err    error
}

func (e *statusError) Error() string {
	if e.err == nil {
		return string(e.status)
	}
	return fmt.Sprintf("%s: %v", e.status, e.err)
}

func (e *statusError) Unwrap() error { return e.err }

// respondError sends an error page and reports it as a statusError.
func respondError(w io.Writer, status StatusCode, detail string, cause error) error {
	if err := sendError(w, status, detail); err != nil {
		return &statusError{status, fmt.Errorf("can't send %s: %w", status, err)}
	}
	return &statusError{status, cause}
}

// serveFile streams the file at path. Content-Length comes from a stat taken
// before any byte is written and exactly that many bytes are sent.
func serveFile(w io.Writer, path string, headOnly bool) error {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		err = fmt.Errorf("%s is a directory", path)
	}
	if err != nil {
		return respondError(w, StatusNotFound, "The requested resource was not found.", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return respondError(w, StatusNotFound, "The requested resource was not found.", err)
	}
	defer file.Close()

	size := info.Size()
	if err := writeHeader(w, StatusOK, mimeType(path), size); err != nil {
		return &statusError{StatusOK, fmt.Errorf("can't write header: %w", err)}
	}
	if headOnly {
		return nil
	}

	// w is buffered by sendChunkSize, so the body goes out in chunks of that size.
	if n, err := io.CopyN(w, file, size); err != nil {
		return fmt.Errorf("can't send %s: sent %d of %d bytes: %w", path, n, size, err)
	}
	return nil
}

type dirEntry struct {
	name  string
	isDir bool
}

// listDirectory renders an HTML index of dirPath, which urlPath maps to.
func listDirectory(w io.Writer, urlPath, dirPath string) error {
	entries, err := readDirEntries(dirPath)
	if err != nil {
		return respondError(w, StatusInternalServerError, "Unable to read directory.", err)
	}

	title := htmlEscape("Index of " + urlPath)
	var html strings.Builder
	html.WriteString("<!doctype html><html><head><meta charset=\"utf-8\">")
	html.WriteString("<title>" + title + "</title>")
	html.WriteString("<style>body{font-family:system-ui,Segoe UI,Arial,sans-serif;margin:1em auto;max-width:900px}" +
		"a{text-decoration:none;color:#05c}a:hover{text-decoration:underline}" +
		"table{border-collapse:collapse;width:100%}th,td{padding:4px 8px;border-bottom:1px solid #eee;text-align:left}" +
		"</style></head><body>")
	html.WriteString("<h1>" + title + "</h1><table><tr><th>Name</th><th>Type</th></tr>")

	if parent, ok := parentPath(urlPath); ok {
		html.WriteString(`<tr><td><a href="` + htmlEscape(parent) + `">..</a></td><td>directory</td></tr>`)
	}

	base := strings.TrimSuffix(urlPath, "/")
	for _, entry := range entries {
		href := base + "/" + hrefEscape(entry.name)
		kind := "file"
		if entry.isDir {
			href += "/"
			kind = "directory"
		}
		html.WriteString(`<tr><td><a href="` + htmlEscape(href) + `">` + htmlEscape(entry.name) + `</a></td><td>` + kind + `</td></tr>`)
	}
	html.WriteString("</table></body></html>")

	return sendResponse(w, StatusOK, ContentTypeHTML, []byte(html.String()))
}

// readDirEntries lists dirPath sorted by name. Symlinks are followed to
// decide whether an entry is a directory.
func readDirEntries(dirPath string) ([]dirEntry, error) {
	des, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	entries := make([]dirEntry, 0, len(des))
	for _, de := range des {
		name := de.Name()
		if name == "." || name == ".." {
			continue
		}
		isDir := false
		if info, err := os.Stat(filepath.Join(dirPath, name)); err == nil {
			isDir = info.IsDir()
		}
		entries = append(entries, dirEntry{name: name, isDir: isDir})
	}
	return entries, nil
}

// parentPath returns the listing's parent link; the root has none.
func parentPath(urlPath string) (string, bool) {
	trimmed := strings.TrimSuffix(urlPath, "/")
	if trimmed == "" {
		return "", false
	}
	last := strings.LastIndexByte(trimmed, '/')
	if last <= 0 {
		return "/", true
	}
	return trimmed[:last], true
}

// hrefEscape percent-encodes a single path segment. '+' is escaped as well
// since incoming paths decode it to a space.
func hrefEscape(name string) string {
	return strings.ReplaceAll(url.PathEscape(name), "+", "%2B")
}
