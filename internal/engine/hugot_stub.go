//go:build !hugot

package engine

import "context"

// OpenSeq2Seq fails fast: no model runtime in this build.
func OpenSeq2Seq(dir string, opts Options) (Seq2Seq, error) {
	return nil, ErrRuntimeUnavailable
}

// OpenClassifier fails fast: no model runtime in this build.
func OpenClassifier(dir string, opts Options) (Classifier, error) {
	return nil, ErrRuntimeUnavailable
}

// Download fails fast: no model runtime in this build.
func Download(ctx context.Context, modelID, dest string, opts DownloadOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", ErrRuntimeUnavailable
}
