package entity

import (
	"bytes"
	"encoding/json"
)

// FieldAverage is the rounded mean of one tracked numeric field.
type FieldAverage struct {
	Field NumericField
	Value float64
}

// TypeCount is the number of records sharing one equipment type.
type TypeCount struct {
	Type  string
	Count int
}

// Chart is a label/value pair sequence ready for rendering. The two front
// ends draw legends straight from the order given here, so the order is part
// of the contract.
type Chart struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Summary is the immutable aggregate derived from one upload.
//
// Averages follows the declared numeric-field order, TypeCounts the
// first-seen order of types in the input rows. Identical input rows always
// produce a byte-identical JSON encoding.
type Summary struct {
	TotalRows  int
	Averages   []FieldAverage
	TypeCounts []TypeCount
}

// Average returns the mean for field, and whether the field is present.
func (s Summary) Average(field NumericField) (float64, bool) {
	for _, a := range s.Averages {
		if a.Field == field {
			return a.Value, true
		}
	}
	return 0, false
}

// CountFor returns the occurrence count for an equipment type.
func (s Summary) CountFor(typ string) (int, bool) {
	for _, tc := range s.TypeCounts {
		if tc.Type == typ {
			return tc.Count, true
		}
	}
	return 0, false
}

// AveragesChart returns the bar-chart view of Averages.
func (s Summary) AveragesChart() Chart {
	chart := Chart{
		Labels: make([]string, 0, len(s.Averages)),
		Values: make([]float64, 0, len(s.Averages)),
	}
	for _, a := range s.Averages {
		chart.Labels = append(chart.Labels, string(a.Field))
		chart.Values = append(chart.Values, a.Value)
	}
	return chart
}

// TypeDistributionChart returns the distribution-chart view of TypeCounts.
func (s Summary) TypeDistributionChart() Chart {
	chart := Chart{
		Labels: make([]string, 0, len(s.TypeCounts)),
		Values: make([]float64, 0, len(s.TypeCounts)),
	}
	for _, tc := range s.TypeCounts {
		chart.Labels = append(chart.Labels, tc.Type)
		chart.Values = append(chart.Values, float64(tc.Count))
	}
	return chart
}

// MarshalJSON writes the wire shape with the mapping keys in declared and
// first-seen order. encoding/json sorts map keys, so the objects are built
// by hand.
func (s Summary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(`{"total_rows":`)
	if err := writeValue(&buf, s.TotalRows); err != nil {
		return nil, err
	}

	buf.WriteString(`,"averages":`)
	if err := writeOrderedObject(&buf, len(s.Averages), func(i int) (string, any) {
		return string(s.Averages[i].Field), s.Averages[i].Value
	}); err != nil {
		return nil, err
	}

	buf.WriteString(`,"type_counts":`)
	if err := writeOrderedObject(&buf, len(s.TypeCounts), func(i int) (string, any) {
		return s.TypeCounts[i].Type, s.TypeCounts[i].Count
	}); err != nil {
		return nil, err
	}

	buf.WriteString(`,"averages_chart":`)
	if err := writeValue(&buf, s.AveragesChart()); err != nil {
		return nil, err
	}

	buf.WriteString(`,"type_distribution_chart":`)
	if err := writeValue(&buf, s.TypeDistributionChart()); err != nil {
		return nil, err
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON rebuilds the ordered mappings from the chart sequences,
// which carry the order that a JSON object cannot.
func (s *Summary) UnmarshalJSON(data []byte) error {
	var wire struct {
		TotalRows             int   `json:"total_rows"`
		AveragesChart         Chart `json:"averages_chart"`
		TypeDistributionChart Chart `json:"type_distribution_chart"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	s.TotalRows = wire.TotalRows

	s.Averages = make([]FieldAverage, 0, len(wire.AveragesChart.Labels))
	for i, label := range wire.AveragesChart.Labels {
		if i >= len(wire.AveragesChart.Values) {
			break
		}
		s.Averages = append(s.Averages, FieldAverage{
			Field: NumericField(label),
			Value: wire.AveragesChart.Values[i],
		})
	}

	s.TypeCounts = make([]TypeCount, 0, len(wire.TypeDistributionChart.Labels))
	for i, label := range wire.TypeDistributionChart.Labels {
		if i >= len(wire.TypeDistributionChart.Values) {
			break
		}
		s.TypeCounts = append(s.TypeCounts, TypeCount{
			Type:  label,
			Count: int(wire.TypeDistributionChart.Values[i]),
		})
	}

	return nil
}

func writeValue(buf *bytes.Buffer, v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	return nil
}

func writeOrderedObject(buf *bytes.Buffer, n int, pair func(i int) (string, any)) error {
	buf.WriteByte('{')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, value := pair(i)
		if err := writeValue(buf, key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeValue(buf, value); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}
