package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/sas2xlsx/internal/types"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName      = "Sheet1"
	DateTimeFormat = "yyyy-mm-dd hh:mm:ss"
)

// ErrSheetLimit means a table has more rows or columns than one worksheet holds.
var ErrSheetLimit = errors.New("table does not fit in one worksheet")

func checkSheetLimits(table *types.Table) error {
	if rows := table.RowCount(); rows+1 > excelize.TotalRows {
		return fmt.Errorf("%w: %d rows, at most %d allowed", ErrSheetLimit, rows, excelize.TotalRows-1)
	}
	if cols := len(table.Columns); cols > excelize.MaxColumns {
		return fmt.Errorf("%w: %d columns, at most %d allowed", ErrSheetLimit, cols, excelize.MaxColumns)
	}
	return nil
}

// WriteXLSX writes table to outputFile as a single sheet with a header row.
// The workbook is saved next to outputFile under a temporary name and renamed
// into place, so outputFile is either fully written or left untouched.
func WriteXLSX(table *types.Table, outputFile string) error {
	if err := checkSheetLimits(table); err != nil {
		return err
	}
	rows := table.RowCount()

	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	dateFormat := DateTimeFormat
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
	if err != nil {
		return err
	}

	header := make([]interface{}, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: col.Name}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i := 0; i < rows; i++ {
		values := table.Row(i)
		row := make([]interface{}, len(values))
		for j, v := range values {
			switch {
			case v == nil:
				row[j] = nil
			case table.Columns[j].Kind == types.Date:
				row[j] = excelize.Cell{StyleID: dateStyle, Value: v}
			default:
				row[j] = v
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	tmpFile := tempName(outputFile)
	if err := f.SaveAs(tmpFile); err != nil {
		os.Remove(tmpFile)
		return err
	}
	if err := os.Rename(tmpFile, outputFile); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return nil
}

// tempName returns a hidden sibling of path that keeps the .xlsx extension,
// which excelize requires when saving.
func tempName(path string) string {
	dir, base := filepath.Split(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "."+base+"-"+uuid.New().String()+TargetExt)
}
