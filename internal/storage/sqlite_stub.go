//go:build !sqlite

package storage

import "fmt"

func newSQLiteStore(path string) (Store, error) {
	return nil, fmt.Errorf("%w (db path %q)", ErrSQLiteUnavailable, path)
}
