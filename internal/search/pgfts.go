package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs plainto_tsquery over the ideas fts column with ts_rank ordering
// and ts_headline snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	where := "i.fts @@ " + tsQuery
	if q.SubmitterID != "" {
		where += fmt.Sprintf(" AND i.submitter_id = $%d", argN)
		args = append(args, q.SubmitterID)
		argN++
	}
	if len(q.Steps) > 0 {
		where += fmt.Sprintf(" AND i.current_step = ANY($%d)", argN)
		args = append(args, q.Steps)
		argN++
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM ideas i WHERE %s", where)

	dataSQL := fmt.Sprintf(`
		SELECT i.id::text, i.idea_number, i.subject,
			ts_headline('english', coalesce(i.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
			i.status, i.current_step
		FROM ideas i
		WHERE %s
		ORDER BY ts_rank(i.fts, %s) DESC
		LIMIT %d OFFSET %d`,
		tsQuery, where, tsQuery, limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.IdeaNumber, &r.Subject, &r.Snippet, &r.Status, &r.CurrentStep); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns every idea for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]IdeaRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id::text, idea_number, subject, coalesce(description, ''), status, current_step, submitter_id::text
		FROM ideas
	`)
	if err != nil {
		return nil, fmt.Errorf("load ideas: %w", err)
	}
	defer rows.Close()

	ideas := make([]IdeaRecord, 0)
	for rows.Next() {
		var idea IdeaRecord
		if err := rows.Scan(&idea.ID, &idea.IdeaNumber, &idea.Subject, &idea.Description, &idea.Status, &idea.CurrentStep, &idea.SubmitterID); err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		ideas = append(ideas, idea)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ideas: %w", err)
	}

	return ideas, nil
}
