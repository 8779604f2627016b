package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"marcovega/pgrecord/pgrecord"
)

// Table is one scanned table ready for export: its column descriptors in
// storage order and the materialized records.
type Table struct {
	Name    string
	Columns []pgrecord.ColumnDescriptor
	Records []pgrecord.Record
}

// Styles are int because excelize.File.NewStyle() returns style index
type styles struct {
	number   int
	dateTime int
}

func newStyles(f *excelize.File) (*styles, error) {
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return nil, err
	}

	decimalPlaces := 2
	numberStyle, err := f.NewStyle(&excelize.Style{
		NumFmt:        0,
		DecimalPlaces: &decimalPlaces,
	})
	if err != nil {
		return nil, err
	}

	return &styles{number: numberStyle, dateTime: dateStyle}, nil
}

func styleFor(s *styles, typeName string) (int, bool) {
	switch typeName {
	case "int2", "int4", "int8", "smallserial", "serial", "bigserial",
		"float4", "float8", "numeric":
		return s.number, true
	case "date", "time", "timestamp", "timestamptz":
		return s.dateTime, true
	}
	return 0, false
}

// Excel writes each table to its own sheet of a single workbook.
func Excel(ctx context.Context, tables []Table, output string) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.ErrorContext(ctx, "Error closing file", "error", err)
		}
	}()

	for _, table := range tables {
		f.NewSheet(table.Name)
		if err := writeTableToSheet(f, table); err != nil {
			slog.ErrorContext(ctx, "Error writing table to sheet", "table", table.Name, "error", err)
			return err
		}
		freezeHeader(f, table.Name)
	}

	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(output); err != nil {
		slog.ErrorContext(ctx, "Error saving file", "error", err)
		return err
	}

	return nil
}

func writeTableToSheet(f *excelize.File, table Table) error {
	sw, err := f.NewStreamWriter(table.Name)
	if err != nil {
		return err
	}

	cellStyles, err := newStyles(f)
	if err != nil {
		return err
	}

	headers := make([]any, len(table.Columns))
	colStyles := make(map[int]int, len(table.Columns))
	for i, col := range table.Columns {
		headers[i] = col.Name
		if styleID, ok := styleFor(cellStyles, col.TypeName); ok {
			colStyles[i] = styleID
		}
	}

	sw.SetRow("A1", headers)

	colsWidth := make(map[int]float64, len(table.Columns))
	for i, record := range table.Records {
		rowData := make([]any, len(table.Columns))

		for j, col := range table.Columns {
			val := record[col.Name]

			if styleID, ok := colStyles[j]; ok {
				rowData[j] = excelize.Cell{Value: val, StyleID: styleID}
			} else {
				rowData[j] = val
			}

			colsWidth[j] = max(colsWidth[j], float64(len(fmt.Sprintf("%v", val))))
		}

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		sw.SetRow(cell, rowData)
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	for i, width := range colsWidth {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(table.Name, colName, colName, width)
	}

	return nil
}

func freezeHeader(f *excelize.File, sheetName string) {
	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomRight",
	})
}
