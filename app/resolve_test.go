package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// newTestSite lays out
//
//	<base>/secret.txt
//	<base>/www/index.html
//	<base>/www/b.txt
//	<base>/www/a/
//	<base>/www/docs/a.txt, b.txt, sub/
//	<base>/www/hello world.txt
//
// and returns a finished Config rooted at <base>/www.
func newTestSite(t *testing.T) *Config {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "www")
	files := map[string]string{
		"secret.txt":          "top secret",
		"www/index.html":      "<h1>home</h1>",
		"www/b.txt":           "bee",
		"www/docs/a.txt":      "alpha",
		"www/docs/b.txt":      "beta",
		"www/hello world.txt": "hi",
	}
	for _, dir := range []string{"www/a", "www/docs/sub"} {
		if err := os.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(base, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := &Config{DocumentRoot: root, Port: defaultPort}
	if err := cfg.finish(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func symlinkOrSkip(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	cfg := newTestSite(t)
	root := cfg.CanonicalRoot

	tests := []struct {
		path      string
		expect    string
		expectErr error
	}{
		{"/", root, nil},
		{"/index.html", filepath.Join(root, "index.html"), nil},
		{"//index.html", filepath.Join(root, "index.html"), nil},
		{"/a/../b.txt", filepath.Join(root, "b.txt"), nil},
		{"/../www/b.txt", filepath.Join(root, "b.txt"), nil},
		{"/b.txt?x=1", filepath.Join(root, "b.txt"), nil},
		{"/b.txt#frag", filepath.Join(root, "b.txt"), nil},
		{"/hello%20world.txt", filepath.Join(root, "hello world.txt"), nil},
		{"/hello+world.txt", filepath.Join(root, "hello world.txt"), nil},
		{"/docs/", filepath.Join(root, "docs"), nil},
		{"/missing.txt", "", errNotFound},
		{"/docs/missing/../a.txt", "", errNotFound},
		{"/../secret.txt", "", errForbidden},
		{"/../../../../../../../../secret.txt", "", errNotFound},
		{"/%2e%2e/secret.txt", "", errForbidden},
		{"/..", "", errForbidden},
		{"/a%2", "", errBadRequest},
		{"/%zz", "", errBadRequest},
	}
	for idx, test := range tests {
		recv, err := resolvePath(cfg, test.path)
		if !errors.Is(err, test.expectErr) {
			t.Errorf("#%d: resolvePath(%q) err=%v, expect=%v", idx, test.path, err, test.expectErr)
			continue
		}
		if recv != test.expect {
			t.Errorf("#%d: resolvePath(%q)=%q, expect=%q", idx, test.path, recv, test.expect)
		}
	}
}

func TestResolvePathSymlinks(t *testing.T) {
	cfg := newTestSite(t)
	root := cfg.CanonicalRoot
	base := filepath.Dir(root)

	symlinkOrSkip(t, filepath.Join(base, "secret.txt"), filepath.Join(root, "escape.txt"))
	symlinkOrSkip(t, base, filepath.Join(root, "up"))
	symlinkOrSkip(t, filepath.Join(root, "docs"), filepath.Join(root, "inner"))

	tests := []struct {
		path      string
		expect    string
		expectErr error
	}{
		{"/escape.txt", "", errForbidden},
		{"/up/secret.txt", "", errForbidden},
		{"/up/www/b.txt", filepath.Join(root, "b.txt"), nil},
		{"/inner/a.txt", filepath.Join(root, "docs", "a.txt"), nil},
		// ".." applies to the link target, so this is <root>/b.txt.
		{"/inner/../b.txt", filepath.Join(root, "b.txt"), nil},
	}
	for idx, test := range tests {
		recv, err := resolvePath(cfg, test.path)
		if !errors.Is(err, test.expectErr) {
			t.Errorf("#%d: resolvePath(%q) err=%v, expect=%v", idx, test.path, err, test.expectErr)
			continue
		}
		if recv != test.expect {
			t.Errorf("#%d: resolvePath(%q)=%q, expect=%q", idx, test.path, recv, test.expect)
		}
	}
}

func TestWithinRoot(t *testing.T) {
	sep := string(filepath.Separator)
	tests := []struct {
		root   string
		path   string
		expect bool
	}{
		{sep + "srv" + sep + "www", sep + "srv" + sep + "www", true},
		{sep + "srv" + sep + "www", sep + "srv" + sep + "www" + sep + "a", true},
		{sep + "srv" + sep + "www", sep + "srv" + sep + "wwwx", false},
		{sep + "srv" + sep + "www", sep + "srv", false},
		{sep, sep + "etc", true},
		{sep, sep, true},
	}
	for idx, test := range tests {
		if recv := withinRoot(test.root, test.path); recv != test.expect {
			t.Errorf("#%d: withinRoot(%q, %q)=%v, expect=%v", idx, test.root, test.path, recv, test.expect)
		}
	}
}
