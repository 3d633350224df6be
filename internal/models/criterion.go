// internal/models/criterion.go
package models

// Criterion is a weighted, range-bounded scoring dimension. The catalog is
// immutable during an evaluation cycle and read-only to the engine.
type Criterion struct {
	ID       string  `json:"id"`
	EventID  string  `json:"eventId"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
	MinScore float64 `json:"minScore"`
	MaxScore float64 `json:"maxScore"`
}

// Range sanity used before normalization. A criterion whose declared range
// collapses cannot produce a meaningful normalized value.
func (c Criterion) RangeValid() bool {
	return c.MaxScore > c.MinScore
}
