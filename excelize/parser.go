// Package excelize extracts cell values from spreadsheets using
// github.com/xuri/excelize/v2.
package excelize

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fwojciec/corpus"
	"github.com/xuri/excelize/v2"
)

// ParseXLSX returns the cell values of every sheet, one row per line
// with cells joined by " | ". Each sheet starts with a "# <sheet>"
// heading. Rows without values are skipped.
func ParseXLSX(data []byte, _ string) (*corpus.Extraction, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var sections []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		var lines []string
		for _, row := range rows {
			if strings.TrimSpace(strings.Join(row, "")) == "" {
				continue
			}
			lines = append(lines, strings.Join(row, " | "))
		}
		if len(lines) == 0 {
			continue
		}
		sections = append(sections, "# "+sheet+"\n"+strings.Join(lines, "\n"))
	}
	return &corpus.Extraction{Text: strings.Join(sections, "\n\n")}, nil
}
