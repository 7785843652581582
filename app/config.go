package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultPort = 8080

// Config is built once at startup and only read afterwards.
type Config struct {
	DocumentRoot  string
	CanonicalRoot string // symlink-free absolute DocumentRoot, the containment boundary
	Port          int
}

// parseConfigFile applies "root=" and "port=" lines from r to cfg. Blank
// lines, lines starting with '#' and lines without '=' are skipped.
func parseConfigFile(r io.Reader, cfg *Config) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := trim(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, value = trim(key), trim(value)

		switch {
		case strings.EqualFold(key, "root"):
			cfg.DocumentRoot = value
		case strings.EqualFold(key, "port"):
			port, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("line %d: invalid port %q", lineNo, value)
			}
			cfg.Port = port
		}
	}
	return scanner.Err()
}

func loadConfigFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("can't read config file: %w", err)
	}
	defer file.Close()

	if err := parseConfigFile(file, cfg); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

// finish validates cfg and fills in CanonicalRoot.
func (cfg *Config) finish() error {
	if cfg.DocumentRoot == "" {
		return fmt.Errorf("document root is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}

	// An absolute root keeps symlinks in the working directory from
	// leaking into canonical paths.
	root, err := filepath.Abs(cfg.DocumentRoot)
	if err != nil {
		return fmt.Errorf("invalid document root %s: %w", cfg.DocumentRoot, err)
	}
	cfg.DocumentRoot = root

	canonical, err := canonicalize(root)
	if err != nil {
		return fmt.Errorf("invalid document root %s: %w", cfg.DocumentRoot, err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return fmt.Errorf("invalid document root %s: %w", cfg.DocumentRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("document root %s is not a directory", cfg.DocumentRoot)
	}
	cfg.CanonicalRoot = canonical
	return nil
}
