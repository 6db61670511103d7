/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/docstore/storagemodels"
)

// SliceRows serves rows that were fully materialized by the backend.
type SliceRows struct {
	rows   []storagemodels.Row
	pos    int
	err    error
	closed bool
}

// NewSliceRows wraps rows. The slice is not copied.
func NewSliceRows(rows []storagemodels.Row) *SliceRows {
	return &SliceRows{rows: rows, pos: -1}
}

func (r *SliceRows) Next(ctx context.Context) bool {
	if r.closed || r.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		r.err = err
		return false
	}
	if r.pos+1 >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *SliceRows) Row() storagemodels.Row {
	if r.pos < 0 || r.pos >= len(r.rows) {
		return storagemodels.Row{}
	}
	return r.rows[r.pos]
}

func (r *SliceRows) Err() error {
	return r.err
}

func (r *SliceRows) Close() error {
	r.closed = true
	return nil
}
