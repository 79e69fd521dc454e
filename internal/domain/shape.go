package domain

import "slices"

// TableShape describes a summary table without its values: the number of
// rows, the column names in order and the number of distinct devices.
type TableShape struct {
	Rows    int
	Columns []string
	Devices int
}

// ShapeOf returns the shape the summaries will have once written.
func ShapeOf(summaries []HourlySummary) TableShape {
	devices := make(map[string]struct{})
	for _, s := range summaries {
		devices[s.DeviceID] = struct{}{}
	}
	return TableShape{
		Rows:    len(summaries),
		Columns: slices.Clone(SummaryColumns),
		Devices: len(devices),
	}
}

// SameLayout reports whether two shapes have the same row count and column set.
// Column order is ignored.
func (s TableShape) SameLayout(other TableShape) bool {
	if s.Rows != other.Rows || len(s.Columns) != len(other.Columns) {
		return false
	}
	a := slices.Clone(s.Columns)
	b := slices.Clone(other.Columns)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}
