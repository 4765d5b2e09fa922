package table

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kartoza/goodspeed/internal/record"
)

func TestFormatOf(t *testing.T) {
	format, err := FormatOf("Batch.XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, format)

	format, err = FormatOf("batch.csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)

	_, err = FormatOf("batch.xls")
	assert.EqualError(t, err, `unsupported file type ".xls"`)
}

func TestReadCSV(t *testing.T) {
	input := "\ufeffCan Size,Good Qty (Can),,Note,Note\n" +
		"Slim 180,600000,x,first,\n" +
		",,,,\n" +
		"Slim 250, 550000,,\"a, b\"\n"

	s, err := Read("upload.csv", strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"Can Size", "Good Qty (Can)", "Unnamed: 2", "Note", "Note.1"}, s.Header)
	require.Len(t, s.Records, 2)

	first := s.Records[0]
	assert.Equal(t, s.Header, first.Fields())
	qty, _ := first.Get("Good Qty (Can)")
	assert.Equal(t, record.KindNumber, qty.Kind())
	size, _ := first.Get("Can Size")
	assert.Equal(t, "Slim 180", size.String())
	dup, _ := first.Get("Note.1")
	assert.True(t, dup.IsMissing())

	second := s.Records[1]
	note, _ := second.Get("Note")
	assert.Equal(t, "a, b", note.String())
	qty, _ = second.Get("Good Qty (Can)")
	f, err := qty.Float()
	require.NoError(t, err)
	assert.Equal(t, 550000.0, f)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("a,b\n1,2,3\n"))
	assert.EqualError(t, err, "row 2 has more cells than the header")
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Can Size", "Good Qty (Can)", "Drink Type"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Slim 180", 600000, "Retort"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{180, 0.26}))
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s, err := Read("upload.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Can Size", "Good Qty (Can)", "Drink Type"}, s.Header)
	require.Len(t, s.Records, 2)

	qty, _ := s.Records[0].Get("Good Qty (Can)")
	assert.Equal(t, "600000", qty.String())

	size, _ := s.Records[1].Get("Can Size")
	assert.Equal(t, "180", size.String())
	drink, _ := s.Records[1].Get("Drink Type")
	assert.True(t, drink.IsMissing())
}

func exportRecords() []record.Record {
	a := record.New()
	a.Set("Can Size", record.String("Slim 180"))
	a.Set("Good Qty (Can)", record.Number(600000))
	a.Set("Predicted Good Speed run", record.Number(47123.5))

	b := record.New()
	b.Set("Can Size", record.String("Slim 250"))
	b.Set("Good Qty (Can)", record.String("lots"))
	b.Set("Predicted Good Speed run", record.Missing())
	b.Set("Comment", record.String("bad qty"))
	return []record.Record{a, b}
}

func TestFromRecords(t *testing.T) {
	s := FromRecords(exportRecords())
	assert.Equal(t, []string{"Can Size", "Good Qty (Can)", "Predicted Good Speed run", "Comment"}, s.Header)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FromRecords(exportRecords()).Write(FormatCSV, &buf))

	assert.Equal(t,
		"Can Size,Good Qty (Can),Predicted Good Speed run,Comment\n"+
			"Slim 180,600000,47123.5,\n"+
			"Slim 250,lots,,bad qty\n",
		buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FromRecords(exportRecords()).Write(FormatXLSX, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Can Size", "Good Qty (Can)", "Predicted Good Speed run", "Comment"}, rows[0])
	assert.Equal(t, "Slim 180", rows[1][0])
	assert.Equal(t, "47123.5", rows[1][2])
	assert.Equal(t, "bad qty", rows[2][3])
}

func TestWriteUnknownFormat(t *testing.T) {
	assert.Error(t, FromRecords(nil).Write("ods", &bytes.Buffer{}))
}
