package sqlitevec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/flarexio/simgen/vector"
)

// classify tags backend errors with a storage sentinel when their text carries
// a known signature. The driver error text is kept for logging.
func classify(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()

	switch {
	case strings.Contains(msg, "no such table"):
		return fmt.Errorf("%w: %v", vector.ErrTableNotFound, err)

	case strings.Contains(msg, "already exists"):
		return fmt.Errorf("%w: %v", vector.ErrTableExists, err)

	case strings.Contains(strings.ToLower(msg), "dimension mismatch"):
		return fmt.Errorf("%w: %v", vector.ErrDimensionMismatch, err)
	}

	return err
}

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	return sqliteErr.Code == sqlite3.ErrConstraint
}
