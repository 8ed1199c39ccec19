// Package grid holds the row store backing the dashboard data grid.
package grid

import (
	"errors"
	"slices"
	"sync"

	"github.com/hylla/taskdash/internal/domain"
	"github.com/hylla/taskdash/internal/layout"
)

// ErrUnknownColumn reports a sort request for a column the layout does not define.
var ErrUnknownColumn = errors.New("unknown grid column")

// SortState describes the active sort.
type SortState struct {
	Column     string
	Descending bool
}

// LocalDataSource stores one section's rows in memory.
type LocalDataSource struct {
	mu     sync.RWMutex
	rows   []domain.Row
	source []domain.Row
	layout layout.Layout
	sort   SortState
}

// NewLocalDataSource constructs an empty data source.
func NewLocalDataSource() *LocalDataSource {
	return &LocalDataSource{}
}

// Load replaces the grid contents, discarding any previous rows and sort.
func (d *LocalDataSource) Load(rows []domain.Row) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.source = append([]domain.Row(nil), rows...)
	d.rows = append([]domain.Row(nil), rows...)
	d.sort = SortState{}
}

// SetLayout sets the layout used for column comparators.
func (d *LocalDataSource) SetLayout(l layout.Layout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.layout = l
}

// Rows returns the current ordering.
func (d *LocalDataSource) Rows() []domain.Row {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]domain.Row(nil), d.rows...)
}

// Count returns the number of loaded rows.
func (d *LocalDataSource) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rows)
}

// Sort returns the active sort state.
func (d *LocalDataSource) Sort() SortState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sort
}

// SetSort stably orders rows by one column; an empty column restores load order.
func (d *LocalDataSource) SetSort(column string, descending bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if column == "" {
		d.rows = append([]domain.Row(nil), d.source...)
		d.sort = SortState{}
		return nil
	}
	col, ok := d.layout.Column(column)
	if !ok {
		return ErrUnknownColumn
	}
	compare := col.Compare
	if compare == nil {
		compare = layout.CompareLexicographic
	}
	rows := append([]domain.Row(nil), d.source...)
	slices.SortStableFunc(rows, func(a, b domain.Row) int {
		c := compare(a[column], b[column])
		if descending {
			return -c
		}
		return c
	})
	d.rows = rows
	d.sort = SortState{Column: column, Descending: descending}
	return nil
}

// Page returns the zero-based page n of the current ordering.
func (d *LocalDataSource) Page(n, size int) []domain.Row {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if size <= 0 {
		return append([]domain.Row(nil), d.rows...)
	}
	start := n * size
	if n < 0 || start >= len(d.rows) {
		return []domain.Row{}
	}
	end := min(start+size, len(d.rows))
	return append([]domain.Row(nil), d.rows[start:end]...)
}
