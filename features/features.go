// Package features turns attribute mappings into sparse numeric vectors.
//
// String attributes are one-hot encoded as "attr=value" columns; numeric
// attributes keep their value under a column named after the attribute.
// Columns are ordered by sorted feature name.
package features

import (
	"sort"
	"strings"

	"github.com/teranos/tripline/errors"
)

// Separator joins an attribute name and a categorical value in a feature name
const Separator = "="

// Value is a single attribute value, either a category or a number
type Value struct {
	str      string
	num      float64
	isNumber bool
}

// String returns a categorical value
func String(s string) Value { return Value{str: s} }

// Number returns a numeric value
func Number(f float64) Value { return Value{num: f, isNumber: true} }

// IsNumber reports whether v is numeric
func (v Value) IsNumber() bool { return v.isNumber }

// Mapping is one row of named attributes
type Mapping map[string]Value

// Vector is a sparse row. Indices are strictly increasing.
type Vector struct {
	Indices []int
	Values  []float64
}

// Dense expands v into a slice of the given width
func (v Vector) Dense(width int) []float64 {
	out := make([]float64, width)
	for k, i := range v.Indices {
		out[i] = v.Values[k]
	}
	return out
}

// Encoder maps Mappings onto a fixed column layout. It is immutable after Fit.
type Encoder struct {
	names []string
	index map[string]int
}

// Fit learns the column layout from every mapping
func Fit(rows []Mapping) (*Encoder, error) {
	if len(rows) == 0 {
		return nil, errors.New("features: cannot fit encoder on zero rows")
	}

	seen := make(map[string]struct{})
	for _, row := range rows {
		for attr, v := range row {
			seen[featureName(attr, v)] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	return newEncoder(names), nil
}

// FromNames rebuilds an encoder from a previously fitted column layout.
// Names must be sorted and unique, as FeatureNames returns them.
func FromNames(names []string) (*Encoder, error) {
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			return nil, errors.Newf("features: names not sorted and unique at %d (%q, %q)", i, names[i-1], names[i])
		}
	}
	cp := make([]string, len(names))
	copy(cp, names)
	return newEncoder(cp), nil
}

func newEncoder(names []string) *Encoder {
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	return &Encoder{names: names, index: index}
}

func featureName(attr string, v Value) string {
	if v.isNumber {
		return attr
	}
	return attr + Separator + v.str
}

// Width returns the number of columns
func (e *Encoder) Width() int { return len(e.names) }

// FeatureNames returns a copy of the column names in column order
func (e *Encoder) FeatureNames() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

// Transform encodes one mapping. Attributes or categories not seen at fit
// time are ignored.
func (e *Encoder) Transform(row Mapping) Vector {
	v := Vector{
		Indices: make([]int, 0, len(row)),
		Values:  make([]float64, 0, len(row)),
	}

	type cell struct {
		idx int
		val float64
	}
	cells := make([]cell, 0, len(row))
	for attr, val := range row {
		idx, ok := e.index[featureName(attr, val)]
		if !ok {
			continue
		}
		x := 1.0
		if val.isNumber {
			x = val.num
		}
		cells = append(cells, cell{idx, x})
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].idx < cells[j].idx })

	for _, c := range cells {
		v.Indices = append(v.Indices, c.idx)
		v.Values = append(v.Values, c.val)
	}
	return v
}

// TransformAll encodes every mapping in order
func (e *Encoder) TransformAll(rows []Mapping) []Vector {
	out := make([]Vector, len(rows))
	for i, row := range rows {
		out[i] = e.Transform(row)
	}
	return out
}

// Attribute returns the attribute part of a feature name and, for one-hot
// columns, the category
func Attribute(name string) (attr, category string, categorical bool) {
	attr, category, categorical = strings.Cut(name, Separator)
	return attr, category, categorical
}
