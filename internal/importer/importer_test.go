package importer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseDelimitedComma(t *testing.T) {
	data := []byte("Full Name,Phone,Email\n" +
		"Martha Phiri,+260971000000,martha@example.com\n" +
		"John Banda,+260972000000,\n" +
		"Grace Mwale,+260973000000,grace@example.com\n")

	rows, err := ParseDelimited(data)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Martha Phiri", rows[0].Name)
	assert.Equal(t, "+260971000000", rows[0].Phone)
	assert.Equal(t, "martha@example.com", rows[0].Email)
	assert.Equal(t, 2, rows[0].Line)

	assert.Equal(t, "John Banda", rows[1].Name)
	assert.Empty(t, rows[1].Email)
}

func TestParseDelimitedSemicolon(t *testing.T) {
	data := []byte("name;mobile number;e-mail\n" +
		"Martha Phiri;+260971000000;martha@example.com\n")

	rows, err := ParseDelimited(data)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Martha Phiri", rows[0].Name)
	assert.Equal(t, "+260971000000", rows[0].Phone)
	assert.Equal(t, "martha@example.com", rows[0].Email)
}

func TestParseDelimitedDropsIncompleteRows(t *testing.T) {
	// One row missing a phone number is dropped, the other three survive
	data := []byte("Full Name,Phone,Email\n" +
		"Martha Phiri,+260971000000,martha@example.com\n" +
		"John Banda,,john@example.com\n" +
		"Grace Mwale,+260973000000,\n" +
		"Peter Zulu,+260974000000,peter@example.com\n")

	rows, err := ParseDelimited(data)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.NotEmpty(t, row.Name)
		assert.NotEmpty(t, row.Phone)
	}
}

func TestParseDelimitedMissingColumns(t *testing.T) {
	data := []byte("Amount,Date\n100,2024-01-01\n")
	_, err := ParseDelimited(data)
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestParseDelimitedEmpty(t *testing.T) {
	_, err := ParseDelimited([]byte(""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestParseWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Name", "Contact", "Email"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Martha Phiri", "+260971000000", "martha@example.com"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"John Banda", "", "john@example.com"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := ParseWorkbook(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Martha Phiri", rows[0].Name)
	assert.Equal(t, "+260971000000", rows[0].Phone)
}

func TestParseDispatch(t *testing.T) {
	_, err := Parse("members.pdf", []byte("whatever"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	rows, err := Parse("members.csv", []byte("Name,Phone\nMartha,+260971000000\n"))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "fullname", normalizeHeader("Full Name"))
	assert.Equal(t, "phonenumber", normalizeHeader(" Phone_Number "))
	assert.Equal(t, "email", normalizeHeader("E-MAIL"))
}

func TestResolveColumns(t *testing.T) {
	name, phone, email := resolveColumns([]string{"Member Name", "Mobile", "E-mail Address"})
	assert.Equal(t, 0, name)
	assert.Equal(t, 1, phone)
	assert.Equal(t, 2, email)

	name, phone, email = resolveColumns([]string{"Contact No.", "Full Name"})
	assert.Equal(t, 1, name)
	assert.Equal(t, 0, phone)
	assert.Equal(t, -1, email)
}
