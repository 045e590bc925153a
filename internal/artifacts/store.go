// Package artifacts stores run output (failure screenshots, reports) either in
// a local directory or in an S3-compatible bucket.
package artifacts

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kuitang/storefront-e2e/internal/config"
	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/obs"
)

// Content types used for stored artifacts.
const (
	ContentTypePNG      = "image/png"
	ContentTypeMarkdown = "text/markdown; charset=utf-8"
	ContentTypeHTML     = "text/html; charset=utf-8"
	ContentTypeJSON     = "application/json"
)

// Store persists artifacts under slash-separated keys.
type Store interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Location returns where a stored key can be found (a path or URL).
	Location(key string) string
}

// NewRunID returns an identifier that sorts by start time.
func NewRunID(now time.Time) string {
	return now.UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
}

// Key builds "runs/<run-id>/<test>/<name>". Characters outside
// [A-Za-z0-9._-] in the test name become "_", so subtest names stay one
// path segment.
func Key(runID, test, name string) string {
	return path.Join("runs", segment(runID), segment(test), segment(name))
}

func segment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// validateKey rejects keys that could escape the store root.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return errs.New(errs.InvalidArgument, fmt.Sprintf("invalid artifact key: %q", key))
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return errs.New(errs.InvalidArgument, fmt.Sprintf("invalid artifact key: %q", key))
		}
	}
	return nil
}

// Open returns the store selected by cfg: the bucket when ARTIFACT_BUCKET is
// set, otherwise the local artifact directory.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.UsesS3() {
		store, err := NewS3Store(ctx, S3Config{
			Endpoint:        cfg.AWSEndpointS3,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			BucketName:      cfg.ArtifactBucket,
			UsePathStyle:    cfg.AWSEndpointS3 != "",
		})
		if err != nil {
			return nil, err
		}
		obs.Pkg("artifacts").Info("artifact store", "kind", "s3", "bucket", cfg.ArtifactBucket)
		return store, nil
	}
	obs.Pkg("artifacts").Info("artifact store", "kind", "dir", "dir", cfg.ArtifactDir)
	return NewDirStore(cfg.ArtifactDir), nil
}
