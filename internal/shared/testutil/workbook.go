package testutil

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// GridToXLSX writes grid into the first sheet of an in-memory workbook.
// Blank cells are left unset.
func GridToXLSX(t testing.TB, grid [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, row := range grid {
		for j, val := range row {
			if val == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				t.Fatalf("set cell %s: %v", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// SampleReportXLSX returns SampleReportGrid as xlsx bytes
func SampleReportXLSX(t testing.TB) []byte {
	return GridToXLSX(t, SampleReportGrid())
}
