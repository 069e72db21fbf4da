package exporter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	_ "github.com/viant/afsc/s3"
	"golang.org/x/sync/errgroup"
)

// fileSystem resolves file://, mem:// and s3:// URLs.
var fileSystem = afs.New()

// Publish uploads the exported version directory src to destURL and checks
// the uploaded copy against the manifest. Only files the manifest lists are
// sent.
func Publish(ctx context.Context, src, destURL string) error {
	m, err := ReadManifest(src)
	if err != nil {
		return err
	}
	if err := diffLocal(ctx, src, m); err != nil {
		return fmt.Errorf("refusing to publish %s: %w", src, err)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	upload := func(rel string) {
		g.Go(func() error {
			f, err := os.Open(filepath.Join(src, filepath.FromSlash(rel)))
			if err != nil {
				return err
			}
			defer f.Close()
			if err := fileSystem.Upload(gctx, joinURL(destURL, rel), 0o644, f); err != nil {
				return fmt.Errorf("upload %s: %w", rel, err)
			}
			return nil
		})
	}
	for _, f := range m.Files {
		upload(f.Path)
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// The manifest goes last so a partial upload never looks complete.
	b, err := os.ReadFile(filepath.Join(src, ManifestName))
	if err != nil {
		return err
	}
	if err := fileSystem.Upload(ctx, joinURL(destURL, ManifestName), 0o644, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("upload %s: %w", ManifestName, err)
	}
	return VerifyURL(ctx, destURL)
}

func diffLocal(ctx context.Context, dir string, want Manifest) error {
	got, err := BuildManifest(ctx, dir)
	if err != nil {
		return err
	}
	return diff(want.Files, got.Files)
}

// VerifyURL checks a published copy through afs. Only files named by the
// manifest are checked since object stores have no cheap directory listing.
func VerifyURL(ctx context.Context, baseURL string) error {
	b, err := fileSystem.DownloadWithURL(ctx, joinURL(baseURL, ManifestName))
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	m, err := decodeManifest(b)
	if err != nil {
		return err
	}
	got := make([]File, len(m.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, f := range m.Files {
		g.Go(func() error {
			data, err := fileSystem.DownloadWithURL(gctx, joinURL(baseURL, f.Path))
			if err != nil {
				// Reported as missing by diff.
				return nil
			}
			sum, size, err := hashReader(bytes.NewReader(data))
			if err != nil {
				return err
			}
			got[i] = File{Path: f.Path, Size: size, SHA256: sum}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	present := got[:0]
	for _, f := range got {
		if f.Path != "" {
			present = append(present, f)
		}
	}
	return diff(m.Files, present)
}

// joinURL keeps the scheme's double slash intact, unlike path.Join.
func joinURL(base, rel string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(rel, "/")
}
