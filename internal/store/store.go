// Package store persists leave requests in an external row-oriented sheet.
// The sheet offers only positional cell access with no transactions, so the
// store keeps an id→row index in front of the linear scan and verifies
// multi-cell writes by reading them back.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/garyjia/leave-approval/internal/domain/entity"
	"github.com/garyjia/leave-approval/internal/domain/workflow"
	"go.uber.org/zap"
)

// RowStore is the persistence collaborator boundary: a sheet addressed by
// 1-based row and column position with a fixed header row at position 1.
// Every call may block on network I/O.
type RowStore interface {
	AppendRow(ctx context.Context, cells []string) error
	ReadAllRows(ctx context.Context) ([][]string, error)
	ReadCell(ctx context.Context, row, col int) (string, error)
	WriteCell(ctx context.Context, row, col int, value string) error
}

// RequestStore handles leave request sheet operations
type RequestStore struct {
	rows   RowStore
	logger *zap.Logger

	mu      sync.Mutex
	index   map[string]int // id → 1-based row position, write-through
	rowTail int            // last known row position, 0 before first load
	loaded  bool
}

// NewRequestStore creates a new request store over the given sheet
func NewRequestStore(rows RowStore, logger *zap.Logger) *RequestStore {
	return &RequestStore{
		rows:   rows,
		logger: logger,
		index:  make(map[string]int),
	}
}

// Create appends the request as a new sheet row and records its position
// in the id index
func (s *RequestStore) Create(ctx context.Context, req *entity.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	if err := s.rows.AppendRow(ctx, req.Row()); err != nil {
		s.logger.Error("Failed to append request row",
			zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("%w: append row: %v", ErrPersistenceFailure, err)
	}

	s.rowTail++
	s.index[req.ID] = s.rowTail

	s.logger.Info("Leave request created",
		zap.String("id", req.ID),
		zap.Int("row", s.rowTail))
	return nil
}

// FindByID retrieves a request by id. An index hit reads the row's cells
// directly; otherwise the sheet is rescanned, first match by scan order wins.
func (s *RequestStore) FindByID(ctx context.Context, id string) (*entity.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.findRow(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.readRecord(ctx, row)
}

// UpdateStatus writes the new status and the appended history entry in
// immediate succession, then reads both cells back. A read-after-write
// mismatch surfaces ErrPersistenceFailure: the transition must be treated
// as not applied and its notification suppressed.
func (s *RequestStore) UpdateStatus(ctx context.Context, id string, newStatus workflow.State, historyAppend string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.findRow(ctx, id)
	if err != nil {
		return err
	}

	history, err := s.rows.ReadCell(ctx, row, entity.ColHistory)
	if err != nil {
		return fmt.Errorf("%w: read history: %v", ErrPersistenceFailure, err)
	}
	newHistory := history + historyAppend

	// Both values are buffered above and written back to back; the sheet
	// offers no transaction spanning the two cells.
	if err := s.rows.WriteCell(ctx, row, entity.ColStatus, newStatus.String()); err != nil {
		return fmt.Errorf("%w: write status: %v", ErrPersistenceFailure, err)
	}
	if err := s.rows.WriteCell(ctx, row, entity.ColHistory, newHistory); err != nil {
		return fmt.Errorf("%w: write history: %v", ErrPersistenceFailure, err)
	}

	if err := s.verifyCell(ctx, row, entity.ColStatus, newStatus.String()); err != nil {
		return err
	}
	if err := s.verifyCell(ctx, row, entity.ColHistory, newHistory); err != nil {
		return err
	}

	s.logger.Info("Leave request status updated",
		zap.String("id", id),
		zap.String("status", newStatus.String()))
	return nil
}

// Fields returns the request's date range, leave type and reason projection
func (s *RequestStore) Fields(ctx context.Context, id string) (start, end, leaveType, reason string, err error) {
	req, err := s.FindByID(ctx, id)
	if err != nil {
		return "", "", "", "", err
	}
	return req.StartDate, req.EndDate, req.LeaveType, req.Reason, nil
}

// findRow resolves id to a row position. Callers hold s.mu.
func (s *RequestStore) findRow(ctx context.Context, id string) (int, error) {
	if row, ok := s.index[id]; ok {
		// Verify the indexed position still holds the id before trusting it.
		got, err := s.rows.ReadCell(ctx, row, entity.ColID)
		if err != nil {
			return 0, fmt.Errorf("%w: read id cell: %v", ErrPersistenceFailure, err)
		}
		if got == id {
			return row, nil
		}
		delete(s.index, id)
	}
	return s.scan(ctx, id)
}

// scan rebuilds the index from a full sheet read, skipping the header row.
// First match by scan order wins when duplicates exist.
func (s *RequestStore) scan(ctx context.Context, id string) (int, error) {
	all, err := s.rows.ReadAllRows(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: read all rows: %v", ErrPersistenceFailure, err)
	}

	found := 0
	for i, cells := range all {
		row := i + 1
		if row == entity.HeaderRow {
			continue
		}
		if len(cells) == 0 || cells[0] == "" {
			continue
		}
		if _, ok := s.index[cells[0]]; !ok {
			s.index[cells[0]] = row
		}
		if cells[0] == id && found == 0 {
			found = row
		}
	}
	s.rowTail = len(all)
	s.loaded = true

	if found == 0 {
		return 0, fmt.Errorf("%w: id %s", ErrRequestNotFound, id)
	}
	return found, nil
}

// ensureLoaded primes rowTail and the index on first use. Callers hold s.mu.
func (s *RequestStore) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	all, err := s.rows.ReadAllRows(ctx)
	if err != nil {
		return fmt.Errorf("%w: read all rows: %v", ErrPersistenceFailure, err)
	}
	for i, cells := range all {
		row := i + 1
		if row == entity.HeaderRow || len(cells) == 0 || cells[0] == "" {
			continue
		}
		if _, ok := s.index[cells[0]]; !ok {
			s.index[cells[0]] = row
		}
	}
	s.rowTail = len(all)
	s.loaded = true
	return nil
}

// readRecord reads one request's cells by position. Callers hold s.mu.
func (s *RequestStore) readRecord(ctx context.Context, row int) (*entity.LeaveRequest, error) {
	cells := make([]string, entity.ColumnCount)
	for col := 1; col <= entity.ColumnCount; col++ {
		v, err := s.rows.ReadCell(ctx, row, col)
		if err != nil {
			return nil, fmt.Errorf("%w: read cell (%d,%d): %v", ErrPersistenceFailure, row, col, err)
		}
		cells[col-1] = v
	}

	req, err := entity.FromRow(cells)
	if err != nil {
		return nil, fmt.Errorf("%w: row %d: %v", ErrPersistenceFailure, row, err)
	}
	return req, nil
}

func (s *RequestStore) verifyCell(ctx context.Context, row, col int, want string) error {
	got, err := s.rows.ReadCell(ctx, row, col)
	if err != nil {
		return fmt.Errorf("%w: verify cell (%d,%d): %v", ErrPersistenceFailure, row, col, err)
	}
	if got != want {
		s.logger.Error("Cell readback mismatch after write",
			zap.Int("row", row), zap.Int("col", col))
		return fmt.Errorf("%w: cell (%d,%d) readback mismatch", ErrPersistenceFailure, row, col)
	}
	return nil
}
