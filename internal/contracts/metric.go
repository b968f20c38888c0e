package contracts

import "encoding/json"

// Metric is an optional statistic. Valid=false means the value is
// undefined (degenerate input, no observations), which is distinct
// from a computed zero. JSON encodes undefined metrics as null via
// MarshalJSON so API consumers see the distinction too.
type Metric struct {
	Value float64
	Valid bool
}

// Defined wraps a computed value.
func Defined(v float64) Metric {
	return Metric{Value: v, Valid: true}
}

// Undefined is the explicit "no value" metric.
func Undefined() Metric {
	return Metric{}
}

// Or returns the metric's value, or fallback when undefined.
func (m Metric) Or(fallback float64) float64 {
	if m.Valid {
		return m.Value
	}
	return fallback
}

// MarshalJSON encodes undefined metrics as null.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON decodes null as undefined.
func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Metric{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Defined(v)
	return nil
}
