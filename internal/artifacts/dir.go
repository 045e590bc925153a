package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kuitang/storefront-e2e/internal/errs"
)

// DirStore keeps artifacts as files under a root directory.
type DirStore struct {
	root string
}

func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

func (d *DirStore) Put(ctx context.Context, key string, content []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	p := d.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fileErr("create dir for", key, err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fileErr("write", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fileErr("rename", key, err)
	}
	return nil
}

func (d *DirStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.New(errs.NotFound, fmt.Sprintf("artifact not found: %q", key))
	}
	if err != nil {
		return nil, fileErr("read", key, err)
	}
	return data, nil
}

func (d *DirStore) Location(key string) string {
	return d.path(key)
}

func (d *DirStore) path(key string) string {
	return filepath.Join(d.root, filepath.FromSlash(key))
}

// fileErr marks permission failures PermissionDenied so a read-only
// ARTIFACT_DIR is reported as such.
func fileErr(op, key string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return errs.Wrap(errs.PermissionDenied, fmt.Sprintf("artifacts: %s %q", op, key), err)
	}
	return fmt.Errorf("artifacts: %s %q: %w", op, key, err)
}
