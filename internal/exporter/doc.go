// Package exporter writes CSV files.
//
// CSVWriter replaces files atomically through a temp file and rename, so the
// history store and the cached report are never left half written. Encode
// streams the same format to any io.Writer, optionally with a UTF-8 BOM for
// Excel.
package exporter
