package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/rulecart/internal/model"
)

// WriteResultSummary writes the boxed overview of a mining result.
func WriteResultSummary(w io.Writer, result *model.Result) error {
	clf := result.Classifier
	var b strings.Builder
	fmt.Fprintf(&b, "Result:     %s\n", result.ID)
	if result.Dataset != "" {
		fmt.Fprintf(&b, "Dataset:    %s (%d rows)\n", result.Dataset, result.Rows)
	}
	fmt.Fprintf(&b, "Mode:       %s", result.Thresholds.Mode)
	if result.Thresholds.Mode == model.ModeAutoSearch {
		fmt.Fprintf(&b, " (%d iterations)", result.Iterations)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Thresholds: confidence >= %.4g, support >= %.4g\n",
		result.Thresholds.ConfidenceMin, result.Thresholds.SupportMin)
	fmt.Fprintf(&b, "Antecedent: %s\n", strings.Join(result.AntecedentAttrs, ", "))
	fmt.Fprintf(&b, "Target:     %s\n", clf.Target)
	if result.Stats.Pruned {
		fmt.Fprintf(&b, "Rules:      %d mined, %d after M1, %d after M2\n",
			result.Stats.Presented, result.Stats.AfterM1, result.Stats.AfterM2)
	} else {
		fmt.Fprintf(&b, "Rules:      %d mined, unpruned\n", result.Stats.Presented)
	}
	fmt.Fprintf(&b, "Default:    %s\n", clf.DefaultClass)
	fmt.Fprintf(&b, "Accuracy:   %.2f%%", 100*result.Stats.Accuracy)

	if _, err := fmt.Fprintln(w, RenderBox(ChartIcon+" Mining Result", b.String())); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if result.BudgetExhausted {
		if _, err := fmt.Fprintln(w, FormatWarning("search budget exhausted; the rule list may be incomplete")); err != nil {
			return err
		}
	}
	for _, warning := range result.Warnings {
		if _, err := fmt.Fprintln(w, FormatWarning(warning.String())); err != nil {
			return err
		}
	}
	return nil
}

// WriteRules writes the ordered rule list of a classifier, ending with the
// default class.
func WriteRules(w io.Writer, clf *model.Classifier) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		HeaderStyle.Render("#"),
		HeaderStyle.Render("Antecedent"),
		HeaderStyle.Render("Class"),
		HeaderStyle.Render("Conf"),
		HeaderStyle.Render("Supp"),
		HeaderStyle.Render("Lift"),
		HeaderStyle.Render("Hits")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, rule := range clf.Rules {
		antecedent := strings.Join(rule.AntecedentStrings(), " & ")
		if antecedent == "" {
			antecedent = "(any)"
		}
		lift := "-"
		if rule.Lift != nil {
			lift = fmt.Sprintf("%.3f", *rule.Lift)
		}
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.3f\t%s\t%d/%d\n",
			i+1,
			antecedent,
			rule.Consequent.Value,
			FormatConfidence(rule.Confidence),
			rule.Support,
			lift,
			rule.Correct, rule.Correct+rule.Incorrect); err != nil {
			return fmt.Errorf("failed to write rule row: %w", err)
		}
	}

	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t\t\t\t\n",
		"-", DefaultRuleStyle.Render("(default)"), clf.DefaultClass); err != nil {
		return fmt.Errorf("failed to write default row: %w", err)
	}
	return tw.Flush()
}

// WriteDatasets lists stored datasets.
func WriteDatasets(w io.Writer, datasets []model.DatasetInfo) error {
	if len(datasets) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No datasets stored. Use 'rulecart datasets import' to add one."))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		HeaderStyle.Render("Name"),
		HeaderStyle.Render("Rows"),
		HeaderStyle.Render("Columns"),
		HeaderStyle.Render("Imported")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, d := range datasets {
		if _, err := fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			d.Name, d.Rows, strings.Join(d.Columns, ","), d.CreatedAt.Format("2006-01-02 15:04")); err != nil {
			return fmt.Errorf("failed to write dataset row: %w", err)
		}
	}
	return tw.Flush()
}

// WriteColumnProfile lists the distinct values of every column of a table.
func WriteColumnProfile(w io.Writer, table *model.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n",
		HeaderStyle.Render("Column"),
		HeaderStyle.Render("Values"),
		HeaderStyle.Render("Categories")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	columns := append([]string(nil), table.Columns...)
	sort.Strings(columns)
	for _, col := range columns {
		values := table.Values(col)
		shown := values
		if len(shown) > 8 {
			shown = append(append([]string(nil), shown[:8]...), "…")
		}
		if _, err := fmt.Fprintf(tw, "%s\t%d\t%s\n", col, len(values), strings.Join(shown, ", ")); err != nil {
			return fmt.Errorf("failed to write column row: %w", err)
		}
	}
	return tw.Flush()
}

// WriteResultList lists stored result summaries.
func WriteResultList(w io.Writer, results []model.ResultSummary) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No mining results stored. Use 'rulecart mine --save' to keep one."))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		HeaderStyle.Render("ID"),
		HeaderStyle.Render("Dataset"),
		HeaderStyle.Render("Task"),
		HeaderStyle.Render("Mode"),
		HeaderStyle.Render("Target"),
		HeaderStyle.Render("Rules"),
		HeaderStyle.Render("Accuracy")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range results {
		mode := string(r.Mode)
		if r.BudgetExhausted {
			mode += "*"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%.2f%%\n",
			r.ID, r.Dataset, r.TaskName, mode, r.Target, r.Rules, 100*r.Accuracy); err != nil {
			return fmt.Errorf("failed to write result row: %w", err)
		}
	}
	return tw.Flush()
}
