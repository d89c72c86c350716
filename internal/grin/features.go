package grin

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// Feature is one optional capability of a graph backend.
type Feature uint32

const (
	FeatureVertexOriginalIDInt64 Feature = 1 << iota
	FeatureVertexOriginalIDString
	FeatureVertexProperty
	FeatureVertexPropertyName
	FeatureEdgeProperty
	FeatureEdgePropertyName
	FeatureConstValuePtr
)

var featureNames = map[Feature]string{
	FeatureVertexOriginalIDInt64:  "vertex_original_id_int64",
	FeatureVertexOriginalIDString: "vertex_original_id_string",
	FeatureVertexProperty:         "vertex_property",
	FeatureVertexPropertyName:     "vertex_property_name",
	FeatureEdgeProperty:           "edge_property",
	FeatureEdgePropertyName:       "edge_property_name",
	FeatureConstValuePtr:          "const_value_ptr",
}

func (f Feature) String() string {
	if n, ok := featureNames[f]; ok {
		return n
	}
	return fmt.Sprintf("feature(%#x)", uint32(f))
}

// Features is a set of capability flags.
type Features uint32

// AllFeatures enables everything a backend may support. Both original-ID
// flags are present; Effective keeps the one matching the stored data.
const AllFeatures = Features(FeatureVertexOriginalIDInt64 | FeatureVertexOriginalIDString |
	FeatureVertexProperty | FeatureVertexPropertyName |
	FeatureEdgeProperty | FeatureEdgePropertyName |
	FeatureConstValuePtr)

// FeaturesOf builds a set from individual flags.
func FeaturesOf(fs ...Feature) Features {
	var out Features
	for _, f := range fs {
		out |= Features(f)
	}
	return out
}

// Has reports whether f is enabled.
func (s Features) Has(f Feature) bool {
	return s&Features(f) != 0
}

// With returns s plus f.
func (s Features) With(f Feature) Features { return s | Features(f) }

// Without returns s minus f.
func (s Features) Without(f Feature) Features { return s &^ Features(f) }

// List returns the enabled flags in bit order.
func (s Features) List() []Feature {
	out := make([]Feature, 0, bits.OnesCount32(uint32(s)))
	for f := Feature(1); f != 0 && Features(f) <= s; f <<= 1 {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (s Features) String() string {
	if s == 0 {
		return "none"
	}
	names := make([]string, 0, 8)
	for _, f := range s.List() {
		names = append(names, f.String())
	}
	return strings.Join(names, ",")
}

// Validate checks the dependencies between flags.
func (s Features) Validate() error {
	var problems []string
	if s.Has(FeatureVertexOriginalIDInt64) && s.Has(FeatureVertexOriginalIDString) {
		problems = append(problems, "int64 and string original ids are mutually exclusive")
	}
	if s.Has(FeatureVertexPropertyName) && !s.Has(FeatureVertexProperty) {
		problems = append(problems, "vertex_property_name requires vertex_property")
	}
	if s.Has(FeatureEdgePropertyName) && !s.Has(FeatureEdgeProperty) {
		problems = append(problems, "edge_property_name requires edge_property")
	}
	if s.Has(FeatureConstValuePtr) && !s.Has(FeatureVertexProperty) && !s.Has(FeatureEdgeProperty) {
		problems = append(problems, "const_value_ptr requires a property feature")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid feature set %s: %s", s, strings.Join(problems, "; "))
	}
	return nil
}

// Effective narrows a requested set to what a backend supports and what the
// stored original-ID datatype allows, then drops flags whose prerequisites
// were removed. The result always passes Validate.
func (s Features) Effective(supported Features, oid DataType) Features {
	out := s & supported
	if oid != Int64 {
		out = out.Without(FeatureVertexOriginalIDInt64)
	}
	if oid != String {
		out = out.Without(FeatureVertexOriginalIDString)
	}
	if !out.Has(FeatureVertexProperty) {
		out = out.Without(FeatureVertexPropertyName)
	}
	if !out.Has(FeatureEdgeProperty) {
		out = out.Without(FeatureEdgePropertyName)
	}
	if !out.Has(FeatureVertexProperty) && !out.Has(FeatureEdgeProperty) {
		out = out.Without(FeatureConstValuePtr)
	}
	return out
}

// ParseFeatures reads flag names as used in configuration files. The names
// "all" and "none" are accepted.
func ParseFeatures(names []string) (Features, error) {
	byName := make(map[string]Feature, len(featureNames))
	for f, n := range featureNames {
		byName[n] = f
	}

	var out Features
	var unknown []string
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case "":
			continue
		case "all":
			out |= AllFeatures
			continue
		case "none":
			continue
		}
		f, ok := byName[name]
		if !ok {
			unknown = append(unknown, raw)
			continue
		}
		out |= Features(f)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return 0, fmt.Errorf("unknown features: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}
