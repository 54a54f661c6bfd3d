package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

const (
	codeHeader        = "cod_conta"
	descriptionHeader = "conta"
	detailsSheet      = "Detalhes"
)

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// DetailsFrame lays the detail table out as a dataframe: code, description,
// then one string column per value column. Missing cells are empty.
func DetailsFrame(d Details) dataframe.DataFrame {
	codes := make([]string, len(d.Rows))
	descs := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		codes[i] = row.AccountCode
		descs[i] = row.AccountDescription
	}

	cols := []series.Series{
		series.New(codes, series.String, codeHeader),
		series.New(descs, series.String, descriptionHeader),
	}
	for _, col := range d.Columns {
		cells := make([]string, len(d.Rows))
		for i, row := range d.Rows {
			if v, ok := row.Values[col]; ok {
				cells[i] = formatAmount(v)
			}
		}
		cols = append(cols, series.New(cells, series.String, col))
	}
	return dataframe.New(cols...)
}

// WriteDetailsCSV writes the detail table as CSV with a header row.
func WriteDetailsCSV(w io.Writer, d Details) error {
	df := DetailsFrame(d)
	if df.Err != nil {
		return fmt.Errorf("build details frame: %w", df.Err)
	}
	return df.WriteCSV(w)
}

// WriteDetailsXLSX writes the detail table as a single sheet workbook with
// numeric value cells.
func WriteDetailsXLSX(w io.Writer, d Details) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", detailsSheet); err != nil {
		return err
	}

	head := make([]any, 0, len(d.Columns)+2)
	head = append(head, codeHeader, descriptionHeader)
	for _, col := range d.Columns {
		head = append(head, col)
	}
	if err := f.SetSheetRow(detailsSheet, "A1", &head); err != nil {
		return err
	}

	for i, row := range d.Rows {
		cells := make([]any, 0, len(head))
		cells = append(cells, row.AccountCode, row.AccountDescription)
		for _, col := range d.Columns {
			if v, ok := row.Values[col]; ok {
				cells = append(cells, v)
			} else {
				cells = append(cells, nil)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(detailsSheet, cell, &cells); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}
