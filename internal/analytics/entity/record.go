package entity

// NumericField names a tracked numeric column of an equipment record.
type NumericField string

const (
	FieldCapacity    NumericField = "capacity"
	FieldPressure    NumericField = "pressure"
	FieldTemperature NumericField = "temperature"
)

// NumericFields lists the tracked numeric fields in their declared order.
// Chart labels and average keys always follow this order.
var NumericFields = []NumericField{FieldCapacity, FieldPressure, FieldTemperature}

// EquipmentRecord is one valid row of an uploaded CSV.
type EquipmentRecord struct {
	EquipmentID string
	Name        string
	Type        string
	Capacity    float64
	Pressure    float64
	Temperature float64

	// Optional descriptive columns; empty when absent from the upload.
	InstallationDate string
	Status           string
}

// Numeric returns the value of a tracked numeric field.
func (r EquipmentRecord) Numeric(field NumericField) float64 {
	switch field {
	case FieldCapacity:
		return r.Capacity
	case FieldPressure:
		return r.Pressure
	case FieldTemperature:
		return r.Temperature
	default:
		return 0
	}
}

// RowError describes a single skipped row. It is data, not an error value:
// a bad row never aborts the upload.
type RowError struct {
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ParsedDataset is the ephemeral result of ingesting one CSV. It is never
// persisted; only the derived Summary and the raw blob are.
type ParsedDataset struct {
	Records   []EquipmentRecord
	RowErrors []RowError
}
