// Package model defines the core data structures for the rule miner.
package model

import (
	"fmt"
	"strings"
)

// CoefficientType describes how a basic boolean attribute selects categories.
type CoefficientType string

// Coefficient type constants.
const (
	CoefficientOneCategory CoefficientType = "One category"
	CoefficientSubset      CoefficientType = "Subset"
	CoefficientNominal     CoefficientType = "Nominal"
	CoefficientSequence    CoefficientType = "Sequence"
)

// ParseCoefficientType maps a document value onto a CoefficientType.
func ParseCoefficientType(s string) (CoefficientType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "one category", "onecategory":
		return CoefficientOneCategory, nil
	case "subset":
		return CoefficientSubset, nil
	case "nominal":
		return CoefficientNominal, nil
	case "sequence":
		return CoefficientSequence, nil
	default:
		return "", fmt.Errorf("unknown coefficient type %q", s)
	}
}

// Coefficient is the category selector of a BBA. Category is set for
// "One category"; the length bounds apply to subsets.
type Coefficient struct {
	Type          CoefficientType `json:"type" yaml:"type"`
	Category      string          `json:"category,omitempty" yaml:"category,omitempty"`
	MinimalLength int             `json:"minimal_length" yaml:"minimal_length"`
	MaximalLength int             `json:"maximal_length" yaml:"maximal_length"`
}

// BBA is a basic boolean attribute: a named test over one source field.
type BBA struct {
	Coefficient Coefficient `json:"coefficient" yaml:"coefficient"`
	ID          string      `json:"id" yaml:"id"`
	Text        string      `json:"text" yaml:"text"`
	Name        string      `json:"name" yaml:"name"`
	FieldRef    string      `json:"field_ref" yaml:"field_ref"`
}

// NodeKind discriminates the DBA variants.
type NodeKind int

// DBA node kinds.
const (
	NodeConjunction NodeKind = iota + 1
	NodeDisjunction
	NodeLiteral
)

func (k NodeKind) String() string {
	switch k {
	case NodeConjunction:
		return "Conjunction"
	case NodeDisjunction:
		return "Disjunction"
	case NodeLiteral:
		return "Literal"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// ParseNodeKind parses the case-insensitive connective name. An empty
// string yields NodeConjunction.
func ParseNodeKind(s string) (NodeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "conjunction":
		return NodeConjunction, nil
	case "disjunction":
		return NodeDisjunction, nil
	case "literal":
		return NodeLiteral, nil
	default:
		return 0, fmt.Errorf("unknown DBA type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *NodeKind) UnmarshalText(b []byte) error {
	parsed, err := ParseNodeKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// LiteralSign is only meaningful on Literal nodes.
type LiteralSign string

// Literal sign constants.
const (
	SignPositive LiteralSign = "Positive"
	SignNegative LiteralSign = "Negative"
)

// ParseLiteralSign accepts "Positive"/"Negative" and "+"/"-".
func ParseLiteralSign(s string) (LiteralSign, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "positive", "+":
		return SignPositive, nil
	case "negative", "-":
		return SignNegative, nil
	default:
		return "", fmt.Errorf("unknown literal sign %q", s)
	}
}

// DBA is a derived boolean attribute. Children hold DBA ids, except on a
// Literal node where the single child is a BBA id.
type DBA struct {
	ID            string      `json:"id" yaml:"id"`
	Sign          LiteralSign `json:"sign,omitempty" yaml:"sign,omitempty"`
	Children      []string    `json:"children" yaml:"children"`
	Kind          NodeKind    `json:"kind" yaml:"kind"`
	MinimalLength int         `json:"minimal_length" yaml:"minimal_length"`
}
