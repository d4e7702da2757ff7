package archive

import (
	"github.com/xuri/excelize/v2"
)

// Sheet names of the xlsx archive
const (
	SheetFrequency = "frequency"
	SheetTime      = "time"
	SheetSummary   = "summary"
)

// WriteXLSX writes the frequency group, the time group and a summary sheet.
// Column headers are the npz keys.
func WriteXLSX(path string, a *Archive) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", SheetFrequency)
	writeColumns(f, SheetFrequency,
		[]string{KeyFrequency, KeyS11, KeyS21},
		[][]float64{a.FrequencyGHz, a.S11dB, a.S21dB})

	if _, err := f.NewSheet(SheetTime); err != nil {
		return err
	}
	names := a.FieldNames()
	headers := []string{KeyTime}
	cols := [][]float64{a.Time}
	for _, name := range names {
		headers = append(headers, FieldPrefix+name)
		cols = append(cols, a.Fields[name])
	}
	writeColumns(f, SheetTime, headers, cols)

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}
	f.SetCellValue(SheetSummary, "A1", "label")
	f.SetCellValue(SheetSummary, "B1", a.Label)
	f.SetCellValue(SheetSummary, "A2", "bins")
	f.SetCellValue(SheetSummary, "B2", len(a.FrequencyGHz))
	f.SetCellValue(SheetSummary, "A3", "time_points")
	f.SetCellValue(SheetSummary, "B3", len(a.Time))
	f.SetCellValue(SheetSummary, "A4", "non_convergent")
	f.SetCellValue(SheetSummary, "B4", a.NonConvergent)

	return f.SaveAs(path)
}

func writeColumns(f *excelize.File, sheet string, headers []string, cols [][]float64) {
	for c, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for c, col := range cols {
		for r, v := range col {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheet, cell, v)
		}
	}
}
