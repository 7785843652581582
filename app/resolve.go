package main

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
	errForbidden  = errors.New("forbidden")
)

// resolvePath maps a request path onto the filesystem. The result is
// canonical and always equal to or nested under cfg.CanonicalRoot.
func resolvePath(cfg *Config, requestPath string) (string, error) {
	if i := strings.IndexAny(requestPath, "?#"); i >= 0 {
		requestPath = requestPath[:i]
	}

	decoded, err := urlDecode(requestPath)
	if err != nil {
		return "", errBadRequest
	}

	rel := strings.TrimLeft(decoded, "/")
	return containedPath(cfg, cfg.DocumentRoot+string(filepath.Separator)+filepath.FromSlash(rel))
}

// containedPath canonicalizes a filesystem path and then checks it against
// cfg.CanonicalRoot. Every path served must come through here.
func containedPath(cfg *Config, path string) (string, error) {
	canonical, err := canonicalize(path)
	if err != nil {
		return "", errNotFound
	}
	if !withinRoot(cfg.CanonicalRoot, canonical) {
		return "", errForbidden
	}
	return canonical, nil
}

// canonicalize returns the absolute, symlink-free form of an existing path.
// Symlinks are resolved before ".." is applied, so "link/.." means the parent
// of the link's target.
func canonicalize(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(resolved)
}

func withinRoot(root, path string) bool {
	if path == root {
		return true
	}
	if strings.HasSuffix(root, string(filepath.Separator)) {
		return strings.HasPrefix(path, root)
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
