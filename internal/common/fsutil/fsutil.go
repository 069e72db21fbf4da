// Package fsutil holds the small filesystem helpers shared by the model
// registry and the exporter.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory, so
// repository paths like ~/models work from config files and flags.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/")), nil
}

// Exists reports whether path exists. Stat errors other than not-exist count
// as existing so callers never overwrite something they could not inspect.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// IsDir reports whether path is an existing directory.
func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// VersionDirs returns the subdirectories of dir whose names are unsigned
// integers, ordered numerically ("2" before "10").
func VersionDirs(dir string) ([]string, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	type version struct {
		name string
		n    uint64
	}
	var vs []version
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		n, err := strconv.ParseUint(d.Name(), 10, 64)
		if err != nil {
			continue
		}
		vs = append(vs, version{d.Name(), n})
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].n < vs[j].n })
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.name
	}
	return out, nil
}
