package excel

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/msavelyev/listing-categorizer/internal/core/domain"
)

// Parser decodes a spreadsheet binary into generic rows keyed by column
// letter. Sheet selects a named sheet; empty means the first sheet in the
// workbook.
type Parser struct {
	Sheet string
}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(data []byte) ([]domain.RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, domain.WrapError(domain.ErrParse, "open workbook", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.WrapError(domain.ErrParse, "select sheet", errors.New("workbook contains no sheets"))
	}

	sheet := sheets[0]
	if p.Sheet != "" {
		sheet = p.Sheet
		if !containsSheet(sheets, sheet) {
			return nil, domain.WrapError(domain.ErrParse, "select sheet", fmt.Errorf("sheet %q not found", sheet))
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, domain.WrapError(domain.ErrParse, "read rows", err)
	}
	if len(rows) == 0 {
		return []domain.RawRow{}, nil
	}

	maxColumns := 0
	for _, row := range rows {
		if len(row) > maxColumns {
			maxColumns = len(row)
		}
	}

	// Ragged rows are right-padded so every RawRow covers the same letters.
	out := make([]domain.RawRow, 0, len(rows))
	for _, row := range rows {
		raw := make(domain.RawRow, maxColumns)
		for c := 0; c < maxColumns; c++ {
			value := ""
			if c < len(row) {
				value = coerceDateCell(row[c])
			}
			raw[domain.ColumnLetter(c)] = value
		}
		out = append(out, raw)
	}
	return out, nil
}

func containsSheet(sheets []string, name string) bool {
	for _, s := range sheets {
		if s == name {
			return true
		}
	}
	return false
}

// dateLayouts are the renderings excelize produces for date-styled cells plus
// the ISO forms that may already be present as text.
var dateLayouts = []string{
	"1/2/06 15:04",
	"1/2/06",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2-Jan-06",
}

// coerceDateCell normalizes date-typed cell renderings to YYYY-MM-DD and
// leaves every other value untouched.
func coerceDateCell(value string) string {
	s := strings.TrimSpace(value)
	if len(s) < 6 || !strings.ContainsAny(s, "/-") {
		return value
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() < 1900 || t.Year() > 2200 {
			return value
		}
		return t.Format("2006-01-02")
	}
	return value
}
