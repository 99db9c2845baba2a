//go:build !cgo

package storage

import (
	"context"
	"fmt"
)

// SQLite is a stub for non-CGO builds
type SQLite struct{}

var errNoCGO = fmt.Errorf("SQLite storage requires CGO (build with CGO_ENABLED=1)")

// NewSQLite returns an error in non-CGO builds
func NewSQLite(path string) (*SQLite, error) {
	return nil, errNoCGO
}

func (s *SQLite) Get(ctx context.Context, model string, keys []string) (map[string][]float32, error) {
	return nil, errNoCGO
}

func (s *SQLite) Put(ctx context.Context, model string, entries []Entry) error {
	return errNoCGO
}

func (s *SQLite) Close() error {
	return nil
}
