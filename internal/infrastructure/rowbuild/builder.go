package rowbuild

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/msavelyev/listing-categorizer/internal/core/domain"
)

// headerRows is the number of leading rows skipped unconditionally: the
// conventional header plus sub-header. They are never treated as data,
// whatever they contain.
const headerRows = 2

// maxReportedIssues caps how many field issues one row error lists.
const maxReportedIssues = 3

// ColumnMap names the spreadsheet column carrying each product field.
type ColumnMap struct {
	ProductNumber string
	ProductName   string
	Hashtags      string
	Keywords      string
	MainImageLink string
	SalesStatus   string
	Manufacturer  string
	ModelName     string
	EditDetails   string
}

// DefaultColumnMap is the upload template layout: columns A through I.
func DefaultColumnMap() ColumnMap {
	return ColumnMap{
		ProductNumber: "A",
		ProductName:   "B",
		Hashtags:      "C",
		Keywords:      "D",
		MainImageLink: "E",
		SalesStatus:   "F",
		Manufacturer:  "G",
		ModelName:     "H",
		EditDetails:   "I",
	}
}

// Builder converts decoded rows into validated categorization request items.
type Builder struct {
	columns  ColumnMap
	validate *validator.Validate
}

func NewBuilder() *Builder {
	return NewBuilderWithColumns(DefaultColumnMap())
}

func NewBuilderWithColumns(columns ColumnMap) *Builder {
	return &Builder{
		columns:  columns,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Build skips the two header rows and assembles one request item per data
// row, validating each immediately. The first invalid row fails the whole
// file with a row-numbered error; non-validation errors propagate unchanged.
func (b *Builder) Build(rows []domain.RawRow, opts domain.RequestOptions) ([]domain.CategoryRequestItem, error) {
	if len(rows) <= headerRows {
		return []domain.CategoryRequestItem{}, nil
	}

	items := make([]domain.CategoryRequestItem, 0, len(rows)-headerRows)
	for i, row := range rows[headerRows:] {
		item := domain.CategoryRequestItem{
			CategoryInputData: b.buildInput(row, i),
			RequestOptions:    opts,
		}
		if err := b.validate.Struct(item); err != nil {
			var fieldErrs validator.ValidationErrors
			if !errors.As(err, &fieldErrs) {
				return nil, err
			}
			return nil, rowError(i+headerRows+1, item.CategoryInputData, fieldErrs)
		}
		items = append(items, item)
	}
	return items, nil
}

func (b *Builder) buildInput(row domain.RawRow, dataIndex int) domain.CategoryInputData {
	input := domain.CategoryInputData{
		ProductNumber: productNumber(row[b.columns.ProductNumber], dataIndex),
		ProductName:   row[b.columns.ProductName],
		Hashtags:      SplitList(row[b.columns.Hashtags]),
		Keywords:      SplitList(row[b.columns.Keywords]),
		MainImageLink: row[b.columns.MainImageLink],
		SalesStatus:   row[b.columns.SalesStatus],
		Manufacturer:  row[b.columns.Manufacturer],
		ModelName:     row[b.columns.ModelName],
		EditDetails:   row[b.columns.EditDetails],
	}
	if strings.TrimSpace(input.SalesStatus) == "" {
		input.SalesStatus = "Unknown"
	}
	return input
}

// productNumber parses column A as an integer. When the cell is empty or not
// parseable the number is synthesized as dataIndex+1: it restarts from 1 for
// the first data row, independent of the header offset.
func productNumber(cell string, dataIndex int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(cell)); err == nil {
		return n
	}
	return dataIndex + 1
}

// SplitList tokenizes a delimited cell. Any mix of commas, semicolons, pipes
// and newlines separates tokens; tokens are trimmed and empties dropped.
func SplitList(cell string) []string {
	parts := strings.FieldsFunc(cell, func(r rune) bool {
		switch r {
		case ',', ';', '|', '\n', '\r':
			return true
		}
		return false
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func rowError(sheetRow int, input domain.CategoryInputData, fieldErrs validator.ValidationErrors) error {
	name := strings.TrimSpace(input.ProductName)
	if name == "" {
		name = fmt.Sprintf("Product %d", input.ProductNumber)
	}

	issues := make([]string, 0, maxReportedIssues)
	for _, fe := range fieldErrs {
		if len(issues) == maxReportedIssues {
			break
		}
		issues = append(issues, fmt.Sprintf("%s %s", fieldPath(fe), issueText(fe)))
	}
	detail := strings.Join(issues, "; ")
	if extra := len(fieldErrs) - len(issues); extra > 0 {
		detail = fmt.Sprintf("%s; +%d more", detail, extra)
	}

	return domain.WrapError(
		domain.ErrRowValidation,
		fmt.Sprintf("row %d (%s)", sheetRow, name),
		errors.New(detail),
	)
}

// fieldPath strips the wrapping struct names, leaving the JSON-ish path a
// user can match against the upload template.
func fieldPath(fe validator.FieldError) string {
	path := fe.StructNamespace()
	path = strings.TrimPrefix(path, "CategoryRequestItem.")
	path = strings.TrimPrefix(path, "CategoryInputData.")
	path = strings.TrimPrefix(path, "RequestOptions.")
	return path
}

func issueText(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
