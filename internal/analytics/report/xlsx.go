package report

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/entity"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/usecase"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkgerror"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// XLSX renders the summary as a single-sheet workbook, rows in the same
// order the Summary carries them.
type XLSX struct{}

func NewXLSX() *XLSX {
	return &XLSX{}
}

func (x *XLSX) Render(ctx context.Context, dataset entity.Dataset) (usecase.Report, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	const sheet = "Summary"
	f.SetSheetName("Sheet1", sheet)

	row := 1
	set := func(col string, value any) {
		_ = f.SetCellValue(sheet, col+strconv.Itoa(row), value)
	}

	set("A", "Chemical Equipment Summary")
	row += 2

	set("A", "Source file")
	set("B", dataset.FileName)
	row++
	set("A", "Total rows")
	set("B", dataset.Summary.TotalRows)
	row += 2

	set("A", "Field")
	set("B", "Average")
	row++
	for _, avg := range dataset.Summary.Averages {
		set("A", string(avg.Field))
		set("B", avg.Value)
		row++
	}
	row++

	set("A", "Type")
	set("B", "Count")
	row++
	for _, tc := range dataset.Summary.TypeCounts {
		set("A", tc.Type)
		set("B", tc.Count)
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return usecase.Report{}, pkgerror.NewServer(fmt.Errorf("render xlsx: %w", err))
	}

	return usecase.Report{
		ContentType: xlsxContentType,
		FileName:    "summary-report.xlsx",
		Body:        buf.Bytes(),
	}, nil
}
