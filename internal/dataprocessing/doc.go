// Package dataprocessing turns raw warehouse report files into normalized
// inventory records.
//
// # Pipeline
//
//	bytes → DecodeWorkbook → Grid → Extract → Extraction{Record, Table}
//
// DecodeWorkbook sniffs the payload signature and decodes xlsx with excelize,
// legacy xls with extrame/xls, and HTML-wrapped tables with goquery.
//
// Extract does not assume fixed offsets. It strips blank rows and columns,
// then tries an ordered chain of header matchers (RECEIVED+WITHDRAWN marker
// pair, a short DEPOSITORY row, the first non-empty row) and an ordered chain
// of totals matchers (labelled TOTAL REGISTERED / TOTAL ELIGIBLE rows valued
// from their rightmost numeric cell, then a single TOTAL row read by column
// keyword or position). The winning strategies are recorded on the record.
//
// When no aggregate row is found the error wraps ErrNotFound. A zero value is
// never substituted for a missing one.
package dataprocessing
