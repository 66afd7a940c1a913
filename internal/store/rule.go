package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ruanqin/chatcore/internal/domain"
)

var ErrNotFound = errors.New("not found")

const ruleColumns = `id, rule_id, rule_name, trigger_type, trigger_content,
	 response_type, response_content, priority, enabled,
	 category, tags, created_time, updated_time`

type RuleStore struct {
	db *pgxpool.Pool
}

func NewRuleStore(db *pgxpool.Pool) *RuleStore {
	return &RuleStore{db: db}
}

// ListEnabled returns the active rule set in matcher order:
// priority descending, then internal id ascending.
func (s *RuleStore) ListEnabled(ctx context.Context) ([]domain.Rule, error) {
	return s.list(ctx,
		`SELECT `+ruleColumns+`
		 FROM rules WHERE enabled = true
		 ORDER BY priority DESC, id ASC`)
}

func (s *RuleStore) ListAll(ctx context.Context) ([]domain.Rule, error) {
	return s.list(ctx,
		`SELECT `+ruleColumns+`
		 FROM rules
		 ORDER BY priority DESC, id ASC`)
}

func (s *RuleStore) list(ctx context.Context, query string) ([]domain.Rule, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.Rule
	for rows.Next() {
		var r domain.Rule
		if err := scanRule(rows, &r); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// Upsert inserts the rule, or overwrites the mutable fields of the existing
// row with the same rule_id. created_time is assigned by the database once
// at first insert and never touched on conflict.
func (s *RuleStore) Upsert(ctx context.Context, r *domain.Rule) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO rules (rule_id, rule_name, trigger_type, trigger_content,
		                    response_type, response_content, priority, enabled, category, tags)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (rule_id)
		 DO UPDATE SET rule_name = EXCLUDED.rule_name,
		               trigger_type = EXCLUDED.trigger_type,
		               trigger_content = EXCLUDED.trigger_content,
		               response_type = EXCLUDED.response_type,
		               response_content = EXCLUDED.response_content,
		               priority = EXCLUDED.priority,
		               enabled = EXCLUDED.enabled,
		               category = EXCLUDED.category,
		               tags = EXCLUDED.tags,
		               updated_time = NOW()
		 RETURNING id, created_time, updated_time`,
		r.RuleID, r.RuleName, r.TriggerType, r.TriggerContent,
		r.ResponseType, r.ResponseContent, r.Priority, r.Enabled, r.Category, r.Tags,
	).Scan(&r.ID, &r.CreatedTime, &r.UpdatedTime)
}

// UpdateFields applies the non-nil patch fields to the rule addressed by
// rule_id; the clear flags set the nullable columns to NULL. The SET list
// is built only from the enumerated patch fields. Callers must not pass
// an empty patch.
func (s *RuleStore) UpdateFields(ctx context.Context, ruleID string, patch domain.RulePatch) (*domain.Rule, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.RuleName != nil {
		set("rule_name", *patch.RuleName)
	}
	if patch.TriggerType != nil {
		set("trigger_type", *patch.TriggerType)
	}
	if patch.TriggerContent != nil {
		set("trigger_content", *patch.TriggerContent)
	}
	if patch.ResponseType != nil {
		set("response_type", *patch.ResponseType)
	}
	if patch.ResponseContent != nil {
		set("response_content", *patch.ResponseContent)
	}
	if patch.Priority != nil {
		set("priority", *patch.Priority)
	}
	if patch.Enabled != nil {
		set("enabled", *patch.Enabled)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	} else if patch.ClearCategory {
		set("category", nil)
	}
	if patch.Tags != nil {
		set("tags", *patch.Tags)
	} else if patch.ClearTags {
		set("tags", nil)
	}
	if len(sets) == 0 {
		return nil, errors.New("empty patch")
	}
	sets = append(sets, "updated_time = NOW()")

	args = append(args, ruleID)
	query := fmt.Sprintf(
		`UPDATE rules SET %s WHERE rule_id = $%d RETURNING `+ruleColumns,
		strings.Join(sets, ", "), len(args))

	r := &domain.Rule{}
	if err := scanRule(s.db.QueryRow(ctx, query, args...), r); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

// Delete removes the rule addressed by rule_id and reports whether a row
// was actually removed.
func (s *RuleStore) Delete(ctx context.Context, ruleID string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM rules WHERE rule_id = $1`, ruleID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *RuleStore) Stats(ctx context.Context) (*domain.RuleStats, error) {
	st := &domain.RuleStats{}
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE enabled),
		        COUNT(*) FILTER (WHERE NOT enabled),
		        COUNT(DISTINCT category),
		        COALESCE(AVG(priority), 0),
		        COALESCE(MAX(priority), 0),
		        COALESCE(MIN(priority), 0)
		 FROM rules`,
	).Scan(&st.TotalRules, &st.EnabledRules, &st.DisabledRules, &st.Categories,
		&st.AvgPriority, &st.MaxPriority, &st.MinPriority)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func scanRule(row pgx.Row, r *domain.Rule) error {
	return row.Scan(
		&r.ID, &r.RuleID, &r.RuleName, &r.TriggerType, &r.TriggerContent,
		&r.ResponseType, &r.ResponseContent, &r.Priority, &r.Enabled,
		&r.Category, &r.Tags, &r.CreatedTime, &r.UpdatedTime,
	)
}
