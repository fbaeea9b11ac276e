// Package importer parses member bulk-import files. Two encodings are
// accepted: delimited text (comma or semicolon) and spreadsheet workbooks
// (first sheet only). Column headers are fuzzy-matched so exports from
// different tools resolve to the same name/phone/email fields.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned for file types other than .csv/.txt/.xlsx.
	ErrUnsupportedFormat = errors.New("unsupported import file format")
	// ErrMissingColumns is returned when no name or phone column can be resolved.
	ErrMissingColumns = errors.New("import file must contain name and phone columns")
	// ErrEmptyFile is returned when the file has no header row.
	ErrEmptyFile = errors.New("import file is empty")
)

// Row is one resolved member row from an import file. Line is the
// 1-based position in the source file, header included.
type Row struct {
	Line  int
	Name  string
	Phone string
	Email string
}

// Parse dispatches on the file extension.
func Parse(filename string, data []byte) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return ParseDelimited(data)
	case ".xlsx":
		return ParseWorkbook(data)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ParseDelimited parses comma- or semicolon-separated text. The delimiter
// is chosen by whichever occurs more often in the header line.
func ParseDelimited(data []byte) ([]Row, error) {
	header, _, found := bytes.Cut(data, []byte("\n"))
	if !found && len(bytes.TrimSpace(header)) == 0 {
		return nil, ErrEmptyFile
	}

	delimiter := ','
	if bytes.Count(header, []byte(";")) > bytes.Count(header, []byte(",")) {
		delimiter = ';'
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return resolveRows(records)
}

// ParseWorkbook parses the first sheet of a spreadsheet workbook.
func ParseWorkbook(data []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	return resolveRows(records)
}

// resolveRows maps raw records to member rows. Rows lacking a resolved
// name or phone are dropped from the import set, not counted as failures.
func resolveRows(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	nameIdx, phoneIdx, emailIdx := resolveColumns(records[0])
	if nameIdx < 0 || phoneIdx < 0 {
		return nil, ErrMissingColumns
	}

	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		row := Row{Line: i + 2}
		if nameIdx < len(record) {
			row.Name = strings.TrimSpace(record[nameIdx])
		}
		if phoneIdx < len(record) {
			row.Phone = strings.TrimSpace(record[phoneIdx])
		}
		if emailIdx >= 0 && emailIdx < len(record) {
			row.Email = strings.TrimSpace(record[emailIdx])
		}
		if row.Name == "" || row.Phone == "" {
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// resolveColumns fuzzy-matches normalized headers to the three known
// fields. The first matching column wins for each field.
func resolveColumns(headers []string) (nameIdx, phoneIdx, emailIdx int) {
	nameIdx, phoneIdx, emailIdx = -1, -1, -1
	for i, h := range headers {
		normalized := normalizeHeader(h)
		switch {
		case nameIdx < 0 && strings.Contains(normalized, "name"):
			nameIdx = i
		case phoneIdx < 0 && (strings.Contains(normalized, "phone") ||
			strings.Contains(normalized, "mobile") ||
			strings.Contains(normalized, "contact")):
			phoneIdx = i
		case emailIdx < 0 && strings.Contains(normalized, "mail"):
			emailIdx = i
		}
	}
	return nameIdx, phoneIdx, emailIdx
}

// normalizeHeader lower-cases a header and strips non-alphanumerics.
func normalizeHeader(h string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(h) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
