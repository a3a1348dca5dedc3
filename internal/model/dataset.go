package model

import "time"

// DatasetInfo describes a stored transaction table.
type DatasetInfo struct {
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Name      string    `json:"name" yaml:"name"`
	Columns   []string  `json:"columns" yaml:"columns"`
	Rows      int       `json:"rows" yaml:"rows"`
}

// ResultSummary is the listing view of a stored mining result.
type ResultSummary struct {
	CreatedAt       time.Time  `json:"created_at" yaml:"created_at"`
	ID              string     `json:"id" yaml:"id"`
	Dataset         string     `json:"dataset" yaml:"dataset"`
	TaskName        string     `json:"task_name" yaml:"task_name"`
	Mode            MiningMode `json:"mode" yaml:"mode"`
	Target          string     `json:"target" yaml:"target"`
	DefaultClass    string     `json:"default_class" yaml:"default_class"`
	Accuracy        float64    `json:"accuracy" yaml:"accuracy"`
	Rules           int        `json:"rules" yaml:"rules"`
	BudgetExhausted bool       `json:"budget_exhausted" yaml:"budget_exhausted"`
}
