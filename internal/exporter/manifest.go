package exporter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"
)

// ManifestName is the file written next to the exported model files.
const ManifestName = "MANIFEST.json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrManifestMismatch is returned by Verify when the directory content differs
// from its manifest.
var ErrManifestMismatch = errors.New("manifest mismatch")

// File is one manifest entry. Path uses forward slashes, relative to the
// model version directory.
type File struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Manifest lists every file of an exported model, sorted by path. It holds no
// timestamps so exporting the same revision twice yields the same bytes.
type Manifest struct {
	ModelID  string `json:"model_id,omitempty"`
	Revision string `json:"revision,omitempty"`
	Files    []File `json:"files"`
}

// BuildManifest hashes every regular file under dir except the manifest itself.
func BuildManifest(ctx context.Context, dir string) (Manifest, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == ManifestName {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return Manifest{}, err
	}
	sort.Strings(paths)

	files := make([]File, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, rel := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := os.Open(filepath.Join(dir, filepath.FromSlash(rel)))
			if err != nil {
				return err
			}
			defer f.Close()
			sum, size, err := hashReader(f)
			if err != nil {
				return fmt.Errorf("hash %s: %w", rel, err)
			}
			files[i] = File{Path: rel, Size: size, SHA256: sum}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Manifest{}, err
	}
	return Manifest{Files: files}, nil
}

func hashReader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// WriteManifest stores m as dir/MANIFEST.json.
func WriteManifest(dir string, m Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestName), append(b, '\n'), 0o644)
}

// ReadManifest loads dir/MANIFEST.json.
func ReadManifest(dir string) (Manifest, error) {
	b, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return Manifest{}, err
	}
	return decodeManifest(b)
}

func decodeManifest(b []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode %s: %w", ManifestName, err)
	}
	return m, nil
}

// Verify recomputes the manifest of dir and compares it with the stored one.
// Missing, extra and changed files are all reported.
func Verify(ctx context.Context, dir string) error {
	want, err := ReadManifest(dir)
	if err != nil {
		return err
	}
	got, err := BuildManifest(ctx, dir)
	if err != nil {
		return err
	}
	return diff(want.Files, got.Files)
}

// Equal reports whether two manifests list the same files.
func Equal(a, b Manifest) bool { return diff(a.Files, b.Files) == nil }

func diff(want, got []File) error {
	index := make(map[string]File, len(got))
	for _, f := range got {
		index[f.Path] = f
	}
	var problems []string
	for _, w := range want {
		g, ok := index[w.Path]
		switch {
		case !ok:
			problems = append(problems, "missing "+w.Path)
		case g.Size != w.Size || g.SHA256 != w.SHA256:
			problems = append(problems, "changed "+w.Path)
		}
		delete(index, w.Path)
	}
	extra := make([]string, 0, len(index))
	for p := range index {
		extra = append(extra, "unexpected "+p)
	}
	sort.Strings(extra)
	problems = append(problems, extra...)
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrManifestMismatch, strings.Join(problems, ", "))
	}
	return nil
}
