package usecase

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/entity"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkgerror"
)

// Canonical column keys, matched after normalization so "Equipment_ID",
// "equipment id" and "EQUIPMENT ID" are all the same column.
const (
	colEquipmentID      = "equipment id"
	colName             = "equipment name"
	colType             = "type"
	colCapacity         = "capacity"
	colPressure         = "pressure"
	colTemperature      = "temperature"
	colInstallationDate = "installation date"
	colStatus           = "status"
)

var requiredColumns = []string{
	colEquipmentID,
	colName,
	colType,
	colCapacity,
	colPressure,
	colTemperature,
}

// ParseCSV reads an uploaded CSV into a ParsedDataset.
//
// It is a pure function: it touches no storage and keeps no state. A row
// that fails validation becomes a RowError and is skipped; the whole upload
// fails only when the header misses required columns or no row survives.
func ParseCSV(r io.Reader) (entity.ParsedDataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return entity.ParsedDataset{}, pkgerror.NewValidation("missing required columns", map[string]string{
			"missing_columns": strings.Join(requiredColumns, ", "),
		})
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		key := normalizeColumn(name)
		if _, exists := index[key]; !exists {
			index[key] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return entity.ParsedDataset{}, pkgerror.NewValidation("missing required columns", map[string]string{
			"missing_columns": strings.Join(missing, ", "),
		})
	}

	var parsed entity.ParsedDataset
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			parsed.RowErrors = append(parsed.RowErrors, entity.RowError{
				Row:    row,
				Reason: "unreadable row: " + err.Error(),
			})
			continue
		}

		rec, rowErr := parseRow(record, index, row)
		if rowErr != nil {
			parsed.RowErrors = append(parsed.RowErrors, *rowErr)
			continue
		}

		parsed.Records = append(parsed.Records, rec)
	}

	if len(parsed.Records) == 0 {
		return entity.ParsedDataset{}, pkgerror.NewValidation("csv contains no valid rows", nil)
	}

	return parsed, nil
}

func parseRow(record []string, index map[string]int, row int) (entity.EquipmentRecord, *entity.RowError) {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rec := entity.EquipmentRecord{
		EquipmentID:      get(colEquipmentID),
		Name:             get(colName),
		Type:             get(colType),
		InstallationDate: get(colInstallationDate),
		Status:           get(colStatus),
	}

	for _, field := range []struct {
		col   string
		value string
	}{
		{colEquipmentID, rec.EquipmentID},
		{colName, rec.Name},
		{colType, rec.Type},
	} {
		if field.value == "" {
			return entity.EquipmentRecord{}, &entity.RowError{
				Row:    row,
				Field:  field.col,
				Reason: "value is empty",
			}
		}
	}

	numeric := []struct {
		col string
		dst *float64
	}{
		{colCapacity, &rec.Capacity},
		{colPressure, &rec.Pressure},
		{colTemperature, &rec.Temperature},
	}
	for _, field := range numeric {
		value, err := parseDecimal(get(field.col))
		if err != nil {
			return entity.EquipmentRecord{}, &entity.RowError{
				Row:    row,
				Field:  field.col,
				Reason: err.Error(),
			}
		}
		*field.dst = value
	}

	return rec, nil
}

// parseDecimal parses a locale-independent decimal number with "." as the
// separator, rejecting NaN and infinities.
func parseDecimal(raw string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("value is empty")
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("not a finite number: %q", raw)
	}

	return value, nil
}

func normalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.Join(strings.Fields(name), " ")
}
