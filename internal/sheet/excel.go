// Package sheet provides the row-oriented persistence adapter backing the
// request store. The workbook file stands in for the external spreadsheet
// service: 1-based row/column addressing, fixed header at row 1.
package sheet

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExcelRowStore implements store.RowStore over an .xlsx workbook.
// Each operation opens, mutates and flushes the workbook, mirroring the
// per-call behavior of a remote sheet API.
type ExcelRowStore struct {
	path      string
	sheetName string
	logger    *zap.Logger

	mu sync.Mutex
}

// NewExcelRowStore opens the workbook at path, creating it with the given
// header row when it does not exist yet.
func NewExcelRowStore(path, sheetName string, header []string, logger *zap.Logger) (*ExcelRowStore, error) {
	s := &ExcelRowStore{
		path:      path,
		sheetName: sheetName,
		logger:    logger,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.bootstrap(header); err != nil {
			return nil, err
		}
		logger.Info("Created workbook", zap.String("path", path), zap.String("sheet", sheetName))
	} else if err != nil {
		return nil, fmt.Errorf("stat workbook: %w", err)
	}

	return s, nil
}

func (s *ExcelRowStore) bootstrap(header []string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(s.sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if s.sheetName != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("drop default sheet: %w", err)
		}
	}

	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(s.sheetName, cell, title); err != nil {
			return fmt.Errorf("write header cell: %w", err)
		}
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// AppendRow appends cells as a new row after the last occupied row
func (s *ExcelRowStore) AppendRow(ctx context.Context, cells []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(s.sheetName)
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}
	target := len(rows) + 1

	for col, value := range cells {
		cell, err := excelize.CoordinatesToCellName(col+1, target)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellValue(s.sheetName, cell, value); err != nil {
			return fmt.Errorf("write cell %s: %w", cell, err)
		}
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	s.logger.Debug("Appended row", zap.Int("row", target))
	return nil
}

// ReadAllRows returns every row of the sheet, header row included
func (s *ExcelRowStore) ReadAllRows(ctx context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(s.sheetName)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, nil
}

// ReadCell returns the value at the 1-based (row, col) position
func (s *ExcelRowStore) ReadCell(ctx context.Context, row, col int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", fmt.Errorf("cell name: %w", err)
	}

	value, err := f.GetCellValue(s.sheetName, cell)
	if err != nil {
		return "", fmt.Errorf("read cell %s: %w", cell, err)
	}
	return value, nil
}

// WriteCell sets the value at the 1-based (row, col) position
func (s *ExcelRowStore) WriteCell(ctx context.Context, row, col int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}

	if err := f.SetCellValue(s.sheetName, cell, value); err != nil {
		return fmt.Errorf("write cell %s: %w", cell, err)
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
