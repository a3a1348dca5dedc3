package model

import (
	"fmt"
	"time"
)

// MiningMode selects between fixed thresholds and automatic relaxation.
type MiningMode string

// Mining modes.
const (
	ModeFixed      MiningMode = "fixed"
	ModeAutoSearch MiningMode = "auto_search"
)

// Thresholds is the canonical, normalized form of a task's interest measures.
type Thresholds struct {
	MaxRuleLength     *int       `json:"max_rule_length,omitempty" yaml:"max_rule_length,omitempty"`
	LiftMin           *float64   `json:"lift_min,omitempty" yaml:"lift_min,omitempty"`
	AADMin            *float64   `json:"aad_min,omitempty" yaml:"aad_min,omitempty"`
	Mode              MiningMode `json:"mode" yaml:"mode"`
	ConfidenceMin     float64    `json:"confidence_min" yaml:"confidence_min"`
	SupportMin        float64    `json:"support_min" yaml:"support_min"`
	CBAPruningEnabled bool       `json:"cba_pruning_enabled" yaml:"cba_pruning_enabled"`
}

// WarningKind classifies non-fatal conditions attached to a result.
type WarningKind string

// Warning kinds.
const (
	WarnUnmatchedReference WarningKind = "unmatched_reference"
	WarnReferenceCycle     WarningKind = "reference_cycle"
	WarnLiteralArity       WarningKind = "literal_arity"
	WarnUnknownNodeKind    WarningKind = "unknown_node_kind"
	WarnDuplicateMeasure   WarningKind = "duplicate_measure"
	WarnThresholdRescaled  WarningKind = "threshold_rescaled"
	WarnMissingColumn      WarningKind = "missing_column"
	WarnIgnoredConsequent  WarningKind = "ignored_consequent"
	WarnBudgetExceeded     WarningKind = "budget_exceeded"
	WarnEmptyResult        WarningKind = "empty_result"
)

// Warning is a structured, recoverable diagnostic.
type Warning struct {
	Kind    WarningKind `json:"kind" yaml:"kind"`
	Message string      `json:"message" yaml:"message"`
	Ref     string      `json:"ref,omitempty" yaml:"ref,omitempty"`
}

func (w Warning) String() string {
	if w.Ref != "" {
		return fmt.Sprintf("%s (%s): %s", w.Kind, w.Ref, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// Result is the structured outcome of one mining request.
type Result struct {
	CreatedAt       time.Time   `json:"created_at" yaml:"created_at"`
	Classifier      *Classifier `json:"classifier" yaml:"classifier"`
	ID              string      `json:"id" yaml:"id"`
	Dataset         string      `json:"dataset,omitempty" yaml:"dataset,omitempty"`
	TaskName        string      `json:"task_name,omitempty" yaml:"task_name,omitempty"`
	Thresholds      Thresholds  `json:"thresholds" yaml:"thresholds"`
	AntecedentAttrs []string    `json:"antecedent_attributes" yaml:"antecedent_attributes"`
	ConsequentAttrs []string    `json:"consequent_attributes" yaml:"consequent_attributes"`
	Warnings        []Warning   `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Stats           BuildStats  `json:"stats" yaml:"stats"`
	Rows            int         `json:"rows" yaml:"rows"`
	Iterations      int         `json:"iterations,omitempty" yaml:"iterations,omitempty"`
	BudgetExhausted bool        `json:"budget_exhausted" yaml:"budget_exhausted"`
}
