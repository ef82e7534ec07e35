package docstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubResult reports a fixed RowsAffected outcome.
type stubResult struct {
	rows int64
	err  error
}

func (r stubResult) LastInsertId() (int64, error) { return 0, nil }
func (r stubResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestExpectOneRow(t *testing.T) {
	miss := fmt.Errorf("draft expected version 3: %w", ErrVersionConflict)

	assert.NoError(t, expectOneRow(stubResult{rows: 1}, miss))
	assert.ErrorIs(t, expectOneRow(stubResult{rows: 0}, miss), ErrVersionConflict)

	driverErr := errors.New("disk I/O error")
	err := expectOneRow(stubResult{err: driverErr}, miss)
	assert.ErrorIs(t, err, driverErr)
	assert.NotErrorIs(t, err, ErrVersionConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
}
