package cba

import (
	"testing"

	"github.com/Veraticus/rulecart/internal/model"
	"github.com/stretchr/testify/assert"
)

func prahaClassifier() *model.Classifier {
	return &model.Classifier{
		Target:       "salary",
		DefaultClass: "low",
		Labels:       []string{"high", "low"},
		Distribution: map[string]float64{"high": 0.4, "low": 0.6},
		Rules: []model.ClassifierRule{{
			CandidateRule: model.CandidateRule{
				Antecedent: []model.Item{{Attribute: "district", Value: "Praha"}},
				Consequent: model.Item{Attribute: "salary", Value: "high"},
				Confidence: 0.95,
				Support:    0.1,
			},
			Rank: 1,
		}},
	}
}

func TestPredict(t *testing.T) {
	clf := prahaClassifier()

	tests := []struct {
		row       model.TransactionRow
		name      string
		want      string
		wantProba []float64
		wantMatch int
	}{
		{name: "matching row", row: model.TransactionRow{"district": "Praha", "age": "old"}, want: "high", wantMatch: 0, wantProba: []float64{0.95, 0}},
		{name: "other value", row: model.TransactionRow{"district": "Brno"}, want: "low", wantMatch: -1, wantProba: []float64{0.4, 0.6}},
		{name: "missing attribute falls through", row: model.TransactionRow{"age": "middle"}, want: "low", wantMatch: -1, wantProba: []float64{0.4, 0.6}},
		{name: "empty row", row: model.TransactionRow{}, want: "low", wantMatch: -1, wantProba: []float64{0.4, 0.6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMatch, Match(clf, tt.row))
			assert.Equal(t, tt.want, Predict(clf, tt.row))
			assert.InDeltaSlice(t, tt.wantProba, PredictProba(clf, tt.row), 1e-12)
		})
	}
}

func TestEvaluate(t *testing.T) {
	clf := prahaClassifier()

	assert.Equal(t, 0.0, Evaluate(clf, model.NewTable(nil, nil)))

	table := model.NewTable([]string{"district", "salary"}, []model.TransactionRow{
		{"district": "Praha", "salary": "high"},
		{"district": "Praha", "salary": "low"},
		{"district": "Brno", "salary": "low"},
		{"district": "Brno"},
	})
	assert.InDelta(t, 0.5, Evaluate(clf, table), 1e-12)
}
