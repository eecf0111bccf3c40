package timesheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// SPREADSHEET READERS - bytes -> rows of cell strings, 0-indexed
// =============================================================================

const maxXLSRows = 100000

// ReadRows decodes a spreadsheet into rows, picking the reader by extension.
// Errors wrap generic.ErrUnsupportedFormat or generic.ErrUnreadableFile.
func ReadRows(name string, data []byte) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(name))

	var (
		rows [][]string
		err  error
	)
	switch ext {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(data)
	case ".xls":
		rows, err = readXLS(data)
	case ".csv", ".txt":
		rows, err = readCSV(data)
	case ".htm", ".html":
		rows, err = readHTML(data)
	default:
		return nil, fmt.Errorf("%w: %q", generic.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generic.ErrUnreadableFile, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: worksheet is empty", generic.ErrUnreadableFile)
	}
	return rows, nil
}

// IsSupported reports whether ReadRows has a reader for the file's extension.
func IsSupported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xls", ".csv", ".txt", ".htm", ".html":
		return true
	}
	return false
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no worksheet found")
	}
	return file.GetRows(sheetName)
}

func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if workbook.NumSheets() == 0 {
		return nil, fmt.Errorf("no worksheet found")
	}
	// ReadAllCells concatenates every sheet, which would mix headers into data.
	if workbook.NumSheets() > 1 {
		return nil, fmt.Errorf("multiple worksheets found; export a single sheet")
	}
	return workbook.ReadAllCells(maxXLSRows), nil
}

// readCSV accepts UTF-8 or BOM-marked UTF-16, comma or tab separated.
func readCSV(data []byte) ([][]string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), decoder))
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(decoded))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if firstLine, _, _ := strings.Cut(string(decoded), "\n"); strings.Count(firstLine, "\t") > strings.Count(firstLine, ",") {
		r.Comma = '\t'
	}
	return r.ReadAll()
}

// readHTML takes the first table of an HTML export. Header cells may be th or td.
func readHTML(data []byte) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no table found")
	}

	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, strings.TrimSpace(cell.Text()))
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})
	return rows, nil
}
