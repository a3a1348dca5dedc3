package model

import (
	"sort"
	"strings"
)

// Item is one attribute=value pair.
type Item struct {
	Attribute string `json:"attribute" yaml:"attribute"`
	Value     string `json:"value" yaml:"value"`
}

func (i Item) String() string {
	return i.Attribute + "=" + i.Value
}

// SortItems orders items by attribute, then value.
func SortItems(items []Item) {
	sort.Slice(items, func(a, b int) bool {
		if items[a].Attribute != items[b].Attribute {
			return items[a].Attribute < items[b].Attribute
		}
		return items[a].Value < items[b].Value
	})
}

// CandidateRule is a mined class association rule.
type CandidateRule struct {
	Lift            *float64 `json:"lift,omitempty" yaml:"lift,omitempty"`
	Consequent      Item     `json:"consequent" yaml:"consequent"`
	Antecedent      []Item   `json:"antecedent" yaml:"antecedent"`
	Support         float64  `json:"support" yaml:"support"`
	Confidence      float64  `json:"confidence" yaml:"confidence"`
	SupportCount    int      `json:"support_count" yaml:"support_count"`
	AntecedentCount int      `json:"antecedent_count" yaml:"antecedent_count"`
}

// Length counts the antecedent items plus the consequent.
func (r CandidateRule) Length() int {
	return len(r.Antecedent) + 1
}

// Matches reports whether every antecedent item holds for the row. A row
// missing an antecedent attribute never matches.
func (r CandidateRule) Matches(row TransactionRow) bool {
	for _, item := range r.Antecedent {
		v, ok := row[item.Attribute]
		if !ok || v != item.Value {
			return false
		}
	}
	return true
}

// AntecedentStrings renders the antecedent as "attr=value" strings.
func (r CandidateRule) AntecedentStrings() []string {
	out := make([]string, len(r.Antecedent))
	for i, item := range r.Antecedent {
		out[i] = item.String()
	}
	return out
}

func (r CandidateRule) String() string {
	return "{" + strings.Join(r.AntecedentStrings(), ", ") + "} => {" + r.Consequent.String() + "}"
}

// ClassifierRule is a candidate rule kept by the builder, with coverage
// bookkeeping from the training table.
type ClassifierRule struct {
	CandidateRule `yaml:",inline"`
	Rank          int `json:"rank" yaml:"rank"`
	Correct       int `json:"correct" yaml:"correct"`
	Incorrect     int `json:"incorrect" yaml:"incorrect"`
}

// Classifier is an ordered first-match rule list with a fallback class.
type Classifier struct {
	Distribution map[string]float64 `json:"distribution" yaml:"distribution"`
	Target       string             `json:"target" yaml:"target"`
	DefaultClass string             `json:"default_class" yaml:"default_class"`
	Labels       []string           `json:"labels" yaml:"labels"`
	Rules        []ClassifierRule   `json:"rules" yaml:"rules"`
}

// LabelIndex returns the position of label within Labels, or -1.
func (c *Classifier) LabelIndex(label string) int {
	for i, l := range c.Labels {
		if l == label {
			return i
		}
	}
	return -1
}

// BuildStats reports rule counts per build stage and training accuracy.
type BuildStats struct {
	Presented int     `json:"presented" yaml:"presented"`
	AfterM1   int     `json:"after_m1" yaml:"after_m1"`
	AfterM2   int     `json:"after_m2" yaml:"after_m2"`
	Accuracy  float64 `json:"accuracy" yaml:"accuracy"`
	Pruned    bool    `json:"pruned" yaml:"pruned"`
}
