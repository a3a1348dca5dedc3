package cba

import "github.com/Veraticus/rulecart/internal/model"

// Match returns the index of the first rule whose antecedent holds for row,
// or -1 when the default class applies.
func Match(clf *model.Classifier, row model.TransactionRow) int {
	for i := range clf.Rules {
		if clf.Rules[i].Matches(row) {
			return i
		}
	}
	return -1
}

// Predict returns the consequent of the first matching rule, or the default class.
func Predict(clf *model.Classifier, row model.TransactionRow) string {
	if i := Match(clf, row); i >= 0 {
		return clf.Rules[i].Consequent.Value
	}
	return clf.DefaultClass
}

// PredictProba returns one score per label in clf.Labels order. A matching
// rule puts its confidence at its label; with no match the training class
// distribution is returned.
func PredictProba(clf *model.Classifier, row model.TransactionRow) []float64 {
	out := make([]float64, len(clf.Labels))
	if i := Match(clf, row); i >= 0 {
		rule := clf.Rules[i]
		if li := clf.LabelIndex(rule.Consequent.Value); li >= 0 {
			out[li] = rule.Confidence
		}
		return out
	}
	for li, label := range clf.Labels {
		out[li] = clf.Distribution[label]
	}
	return out
}

// Evaluate returns the fraction of rows whose target value equals the
// prediction. An empty table scores 0.
func Evaluate(clf *model.Classifier, table *model.Table) float64 {
	if table.Len() == 0 {
		return 0
	}
	hits := 0
	for _, row := range table.Rows {
		actual, ok := row[clf.Target]
		if ok && actual == Predict(clf, row) {
			hits++
		}
	}
	return float64(hits) / float64(table.Len())
}
