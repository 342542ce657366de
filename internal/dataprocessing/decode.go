package dataprocessing

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	apperrors "silverpulse/internal/errors"
)

const maxXLSRows = 100000

var (
	zipSignature  = []byte("PK\x03\x04")
	ole2Signature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DecodeWorkbook sniffs the payload and decodes it into a Grid. It handles
// xlsx (excelize), legacy BIFF xls (extrame/xls) and HTML-wrapped tables.
func DecodeWorkbook(data []byte) (Grid, error) {
	switch {
	case len(data) == 0:
		return nil, apperrors.NewDecodeError("report payload is empty", nil)
	case bytes.HasPrefix(data, zipSignature):
		return decodeXLSX(data)
	case bytes.HasPrefix(data, ole2Signature):
		return decodeXLS(data)
	case looksLikeHTML(data):
		return decodeHTMLTable(data)
	default:
		return nil, apperrors.NewDecodeError("unrecognized report format", nil).
			WithContext("size", len(data))
	}
}

func decodeXLSX(data []byte) (Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to open xlsx report", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewDecodeError("xlsx report has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewDecodeError(fmt.Sprintf("failed to read sheet %q", sheets[0]), err)
	}
	return Grid(rows), nil
}

func decodeXLS(data []byte) (grid Grid, err error) {
	// the BIFF reader panics on some truncated streams
	defer func() {
		if r := recover(); r != nil {
			grid = nil
			err = apperrors.NewDecodeError(fmt.Sprintf("xls reader panic: %v", r), nil)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to open xls report", err)
	}

	rows := wb.ReadAllCells(maxXLSRows)
	if len(rows) == 0 {
		return nil, apperrors.NewDecodeError("xls report has no rows", nil)
	}
	return Grid(rows), nil
}

func looksLikeHTML(data []byte) bool {
	head := bytes.TrimSpace(data)
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<"))
}

// decodeHTMLTable picks the table with the most rows
func decodeHTMLTable(data []byte) (Grid, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to parse html report", err)
	}

	var best Grid
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var grid Grid
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var row []string
			tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				row = append(row, strings.TrimSpace(cell.Text()))
			})
			grid = append(grid, row)
		})
		if len(grid) > len(best) {
			best = grid
		}
	})

	if len(best) == 0 {
		return nil, apperrors.NewDecodeError("html report contains no table rows", nil)
	}
	return best, nil
}
