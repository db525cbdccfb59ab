package usecase

import (
	"math"

	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/entity"
)

// Summarize derives the aggregate statistics for a set of valid records.
//
// The input is guaranteed non-empty by ParseCSV, so the mean never divides
// by zero. Identical input (same rows, same order) always yields the same
// Summary: averages follow the declared field order and type counts follow
// first-seen order, so two renderers drawing from the same Summary produce
// identical legends.
func Summarize(records []entity.EquipmentRecord) entity.Summary {
	sums := make(map[entity.NumericField]float64, len(entity.NumericFields))
	for _, rec := range records {
		for _, field := range entity.NumericFields {
			sums[field] += rec.Numeric(field)
		}
	}

	total := len(records)
	averages := make([]entity.FieldAverage, 0, len(entity.NumericFields))
	for _, field := range entity.NumericFields {
		averages = append(averages, entity.FieldAverage{
			Field: field,
			Value: round1(sums[field] / float64(total)),
		})
	}

	typeIndex := make(map[string]int)
	counts := make([]entity.TypeCount, 0)
	for _, rec := range records {
		if i, seen := typeIndex[rec.Type]; seen {
			counts[i].Count++
			continue
		}
		typeIndex[rec.Type] = len(counts)
		counts = append(counts, entity.TypeCount{Type: rec.Type, Count: 1})
	}

	return entity.Summary{
		TotalRows:  total,
		Averages:   averages,
		TypeCounts: counts,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
