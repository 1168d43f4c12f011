package auth

import (
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
)

func checkedUser(record *User, err error, meta map[string]any) (*User, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().WithMetadata(meta)
		}
		return nil, err
	}
	return record, nil
}

func ensureAffected(res sql.Result, meta map[string]any) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.NewRecordNotFound().WithMetadata(meta)
	}
	return nil
}

// IsRecordNotFound reports whether the error is the repository's
// record-not-found, re-exported so callers outside the package do not need
// to import the repository module.
func IsRecordNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}
