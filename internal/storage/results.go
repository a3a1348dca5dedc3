package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/model"
	"github.com/Veraticus/rulecart/internal/service"
	"github.com/mattn/go-sqlite3"
)

// SaveResult stores a mining result. Classifier rules go to their own table;
// everything else is kept as a JSON payload.
func (s *SQLiteStorage) SaveResult(ctx context.Context, result *model.Result) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateResult(result); err != nil {
		return err
	}

	payload := *result
	clf := *result.Classifier
	clf.Rules = nil
	payload.Classifier = &clf
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO mining_results (
			id, dataset, task_name, mode, target, default_class,
			accuracy, rule_count, budget_exhausted, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID,
		result.Dataset,
		result.TaskName,
		string(result.Thresholds.Mode),
		result.Classifier.Target,
		result.Classifier.DefaultClass,
		result.Stats.Accuracy,
		len(result.Classifier.Rules),
		result.BudgetExhausted,
		string(payloadJSON),
		createdAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: result %q", common.ErrDuplicateEntry, result.ID)
		}
		return fmt.Errorf("failed to insert result: %w", err)
	}

	if err := s.saveRulesTx(ctx, tx, result.ID, result.Classifier.Rules); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit result: %w", err)
	}

	common.LogInfo("result saved", common.Fields{"result_id": result.ID, "rules": len(result.Classifier.Rules)})
	return nil
}

func (s *SQLiteStorage) saveRulesTx(ctx context.Context, tx *sql.Tx, resultID string, rules []model.ClassifierRule) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO classifier_rules (
			result_id, position, rank, antecedent, consequent_attribute, consequent_value,
			support, confidence, lift, support_count, antecedent_count, correct, incorrect
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, rule := range rules {
		antecedent, err := json.Marshal(rule.Antecedent)
		if err != nil {
			return fmt.Errorf("failed to encode antecedent of rule %d: %w", i, err)
		}
		var lift sql.NullFloat64
		if rule.Lift != nil {
			lift = sql.NullFloat64{Float64: *rule.Lift, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			resultID, i, rule.Rank, string(antecedent),
			rule.Consequent.Attribute, rule.Consequent.Value,
			rule.Support, rule.Confidence, lift,
			rule.SupportCount, rule.AntecedentCount,
			rule.Correct, rule.Incorrect,
		); err != nil {
			return fmt.Errorf("failed to insert rule %d: %w", i, err)
		}
	}
	return nil
}

// GetResult loads a stored result. Results are cached; callers must treat
// the returned value as read-only.
func (s *SQLiteStorage) GetResult(ctx context.Context, id string) (*model.Result, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	if cached, ok := s.results.Get(id); ok {
		return cached, nil
	}

	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM mining_results WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: result %q", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query result: %w", err)
	}

	var result model.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to decode result %q: %w", id, err)
	}
	if result.Classifier == nil {
		result.Classifier = &model.Classifier{}
	}

	rules, err := s.loadRules(ctx, id)
	if err != nil {
		return nil, err
	}
	result.Classifier.Rules = rules

	s.results.Add(id, &result)
	return &result, nil
}

func (s *SQLiteStorage) loadRules(ctx context.Context, resultID string) ([]model.ClassifierRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rank, antecedent, consequent_attribute, consequent_value,
			support, confidence, lift, support_count, antecedent_count, correct, incorrect
		FROM classifier_rules
		WHERE result_id = ?
		ORDER BY position`, resultID)
	if err != nil {
		return nil, fmt.Errorf("failed to query classifier rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.ClassifierRule
	for rows.Next() {
		var (
			rule       model.ClassifierRule
			antecedent string
			lift       sql.NullFloat64
		)
		if err := rows.Scan(
			&rule.Rank, &antecedent,
			&rule.Consequent.Attribute, &rule.Consequent.Value,
			&rule.Support, &rule.Confidence, &lift,
			&rule.SupportCount, &rule.AntecedentCount,
			&rule.Correct, &rule.Incorrect,
		); err != nil {
			return nil, fmt.Errorf("failed to scan classifier rule: %w", err)
		}
		if err := json.Unmarshal([]byte(antecedent), &rule.Antecedent); err != nil {
			return nil, fmt.Errorf("failed to decode antecedent: %w", err)
		}
		if lift.Valid {
			l := lift.Float64
			rule.Lift = &l
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// ListResults returns result summaries, newest first.
func (s *SQLiteStorage) ListResults(ctx context.Context, filter service.ResultFilter) ([]model.ResultSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, dataset, task_name, mode, target, default_class,
			accuracy, rule_count, budget_exhausted, created_at
		FROM mining_results`
	var args []any
	if filter.Dataset != "" {
		query += ` WHERE dataset = ?`
		args = append(args, filter.Dataset)
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ResultSummary
	for rows.Next() {
		var (
			r    model.ResultSummary
			mode string
		)
		if err := rows.Scan(&r.ID, &r.Dataset, &r.TaskName, &mode, &r.Target, &r.DefaultClass,
			&r.Accuracy, &r.Rules, &r.BudgetExhausted, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Mode = model.MiningMode(mode)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteResult removes a result and its rules.
func (s *SQLiteStorage) DeleteResult(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM classifier_rules WHERE result_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete classifier rules: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM mining_results WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: result %q", common.ErrNotFound, id)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit result deletion: %w", err)
	}

	s.results.Remove(id)
	common.LogInfo("result deleted", common.Fields{"result_id": id})
	return nil
}
