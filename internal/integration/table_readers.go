package integration

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/anrid/xls"
	"github.com/xuri/excelize/v2"
)

// TableFormat identifies how a dataset source is encoded
type TableFormat string

const (
	FormatCSV  TableFormat = "csv"
	FormatTSV  TableFormat = "tsv"
	FormatXLSX TableFormat = "xlsx"
	FormatXLS  TableFormat = "xls"
	FormatHTML TableFormat = "html"
)

// readTable decodes raw source content into rows of cells, header row first
func readTable(format TableFormat, content []byte, delimiter rune) ([][]string, error) {
	switch format {
	case FormatXLSX:
		return readXLSX(content)
	case FormatXLS:
		return readXLS(content)
	case FormatHTML:
		return readHTMLTable(content)
	case FormatTSV:
		return readCSV(content, '\t')
	default:
		return readCSV(content, delimiter)
	}
}

func readCSV(content []byte, delimiter rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

func readXLSX(content []byte) ([][]string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("XLSX workbook has no sheets")
	}
	defaultSheet := sheets[0]

	rows, err := wb.GetRows(defaultSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows for sheet '%s': %w", defaultSheet, err)
	}
	log.Printf("Read %d rows from XLSX sheet '%s'", len(rows), defaultSheet)
	return rows, nil
}

func readXLS(content []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(content), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open XLS workbook: %w", err)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("XLS workbook has no sheets")
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		var cols []string
		for j := 0; j <= row.LastCol(); j++ {
			cols = append(cols, row.Col(j))
		}
		rows = append(rows, cols)
	}
	log.Printf("Read %d rows from XLS sheet '%s'", len(rows), sheet.Name)
	return rows, nil
}

// readHTMLTable reads the first <table> of an HTML document
func readHTMLTable(content []byte) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("HTML document has no table")
	}

	var rows [][]string
	table.Find("tr").Each(func(index int, tr *goquery.Selection) {
		var cols []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cols = append(cols, strings.TrimSpace(cell.Text()))
		})
		if len(cols) > 0 {
			rows = append(rows, cols)
		}
	})
	log.Printf("Read %d rows from HTML table", len(rows))
	return rows, nil
}
