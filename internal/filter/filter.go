// Package filter builds the boolean filter expressions accepted by the
// remote resource store's search API. A filter is a tree of comparison
// nodes combined under logical operators, serialized as
// {"=": {"field": value}} and {"and": [...]} respectively.
package filter

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Op is a comparison operator understood by the store.
type Op string

const (
	OpEqual Op = "="
	OpLT    Op = "<"
	OpLE    Op = "<="
	OpGT    Op = ">"
	OpGE    Op = ">="
	OpNE    Op = "!="
)

// LogicalOp combines multiple filter nodes.
type LogicalOp string

const (
	And LogicalOp = "and"
	Or  LogicalOp = "or"
)

// Node is a single element of a filter tree: either a Comparison or a
// Logical. A nil Node is the empty filter and matches everything.
type Node interface {
	json.Marshaler
	isNode()
}

// Comparison is a single field comparison.
type Comparison struct {
	Op    Op
	Field string
	Value any
}

func (Comparison) isNode() {}

// MarshalJSON emits the store's wire shape, e.g. {"<=": {"started_at": "..."}}.
func (c Comparison) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]map[string]any{
		string(c.Op): {c.Field: c.Value},
	})
}

// Logical combines child nodes under a logical operator. Constructed only
// through Combine, which guarantees at least two children.
type Logical struct {
	Op       LogicalOp
	Children []Node
}

func (Logical) isNode() {}

// MarshalJSON emits the store's wire shape, e.g. {"and": [...]}.
func (l Logical) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]Node{
		string(l.Op): l.Children,
	})
}

// Compare builds one comparison per constraint key, applying the same
// operator to each. Multiple comparisons are combined under And. Keys are
// visited in sorted order so identical constraint sets always produce the
// same tree. An empty constraint map yields the empty filter.
func Compare(op Op, constraints map[string]any) Node {
	return CompareWith(op, And, constraints)
}

// CompareWith is Compare with an explicit logical operator for the case of
// multiple constraints.
func CompareWith(op Op, lop LogicalOp, constraints map[string]any) Node {
	if len(constraints) == 0 {
		return nil
	}
	keys := make([]string, 0, len(constraints))
	for k := range constraints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	nodes := make([]Node, 0, len(keys))
	for _, k := range keys {
		nodes = append(nodes, Comparison{Op: op, Field: k, Value: constraints[k]})
	}
	return Combine(lop, nodes...)
}

// Combine merges nodes under a logical operator, dropping empty ones.
// Combining with the empty filter is the identity: zero non-empty inputs
// yield the empty filter, a single non-empty input is returned unwrapped,
// so no single-child logical node is ever produced.
func Combine(op LogicalOp, nodes ...Node) Node {
	kept := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			kept = append(kept, n)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return Logical{Op: op, Children: kept}
	}
}

// Encode serializes a filter tree to its wire form. The empty filter
// encodes as an empty JSON object.
func Encode(n Node) ([]byte, error) {
	if n == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	return b, nil
}
