package outcome

import "encoding/json"

// NotAvailable is written in place of a value the upstream did not report.
const NotAvailable = "N/A"

// Field is an optional value that marshals as "N/A" when unknown.
type Field[T any] struct {
	Value T
	Known bool
}

// Known wraps a reported value.
func Known[T any](v T) Field[T] {
	return Field[T]{Value: v, Known: true}
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Known {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(f.Value)
}

func (f Field[T]) String() string {
	if !f.Known {
		return NotAvailable
	}
	b, err := json.Marshal(f.Value)
	if err != nil {
		return NotAvailable
	}
	return string(b)
}
