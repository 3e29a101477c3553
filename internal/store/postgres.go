package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNoPendingStep means a review was applied to an idea with no open step.
	ErrNoPendingStep = errors.New("no pending workflow step")
	// ErrStepConflict means the idea moved to another step since the caller read it.
	ErrStepConflict = errors.New("workflow step changed")
)

// IsUniqueViolation reports whether err is a Postgres duplicate-key error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ── Users ──

const userColumns = `id, zoho_id, email, name, role, is_admin, country, department, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.ZohoID, &u.Email, &u.Name, &u.Role, &u.IsAdmin, &u.Country, &u.Department, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *PostgresStore) UpsertUserByZohoID(ctx context.Context, zohoID, email, name string, country *string) (User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `
		INSERT INTO users (zoho_id, email, name, country)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (zoho_id) DO UPDATE SET email=EXCLUDED.email, name=EXCLUDED.name, updated_at=NOW()
		RETURNING `+userColumns, zohoID, email, name, country))
	if err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByZohoID(ctx context.Context, zohoID string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE zoho_id=$1`, zohoID))
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID int64) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID))
}

func (s *PostgresStore) ListUsersByRole(ctx context.Context, role string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE role=$1 ORDER BY name`, role)
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *PostgresStore) ListUserEmailsByRole(ctx context.Context, role string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT email FROM users WHERE role=$1`, role)
	if err != nil {
		return nil, fmt.Errorf("list emails by role: %w", err)
	}
	defer rows.Close()

	emails := make([]string, 0)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// ── Ideas ──

// vote_count is always recomputed from idea_votes, never stored.
const ideaSelect = `
	SELECT i.id, i.idea_number, i.subject, i.description, i.country, i.department, i.cluster,
		i.workflow_version, i.expected_benefit, i.implementation_effort, i.priority,
		i.status, i.current_step, i.submitter_id, u.name,
		COALESCE((
			SELECT SUM(CASE v.vote_type WHEN 'upvote' THEN 1 WHEN 'downvote' THEN -1 ELSE 0 END)
			FROM idea_votes v WHERE v.idea_id = i.id
		), 0),
		i.created_at, i.updated_at
	FROM ideas i
	JOIN users u ON u.id = i.submitter_id
`

func scanIdea(row interface{ Scan(...any) error }) (Idea, error) {
	var item Idea
	err := row.Scan(
		&item.ID, &item.IdeaNumber, &item.Subject, &item.Description, &item.Country,
		&item.Department, &item.Cluster, &item.WorkflowVersion, &item.ExpectedBenefit,
		&item.ImplementationEffort, &item.Priority, &item.Status, &item.CurrentStep,
		&item.SubmitterID, &item.SubmitterName, &item.VoteCount, &item.CreatedAt, &item.UpdatedAt,
	)
	return item, err
}

// IdeaFilter narrows ListIdeas. Zero value lists everything.
type IdeaFilter struct {
	SubmitterID *int64
	Steps       []string
}

func (s *PostgresStore) ListIdeas(ctx context.Context, filter IdeaFilter) ([]Idea, error) {
	query := ideaSelect
	args := []any{}
	switch {
	case filter.SubmitterID != nil:
		args = append(args, *filter.SubmitterID)
		query += ` WHERE i.submitter_id = $1`
	case len(filter.Steps) > 0:
		query += ` WHERE i.current_step = ANY($1)`
		steps := make([]string, len(filter.Steps))
		copy(steps, filter.Steps)
		args = append(args, steps)
	}
	query += ` ORDER BY i.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	defer rows.Close()

	items := make([]Idea, 0)
	for rows.Next() {
		item, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListIdeasByIDs(ctx context.Context, ids []int64) ([]Idea, error) {
	if len(ids) == 0 {
		return []Idea{}, nil
	}
	rows, err := s.db.QueryContext(ctx, ideaSelect+` WHERE i.id = ANY($1) ORDER BY i.updated_at DESC`, ids)
	if err != nil {
		return nil, fmt.Errorf("list ideas by ids: %w", err)
	}
	defer rows.Close()

	items := make([]Idea, 0)
	for rows.Next() {
		item, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetIdea(ctx context.Context, ideaID int64) (Idea, error) {
	return scanIdea(s.db.QueryRowContext(ctx, ideaSelect+` WHERE i.id=$1`, ideaID))
}

// NewIdea carries the caller-supplied fields for InsertIdea.
type NewIdea struct {
	Subject              string
	Description          string
	Country              *string
	Department           *string
	Cluster              *string
	WorkflowVersion      *string
	ExpectedBenefit      *string
	ImplementationEffort *string
	Priority             string
	Status               string
	CurrentStep          string
	SubmitterID          int64
}

// InsertIdea assigns the idea number from idea_number_seq.
func (s *PostgresStore) InsertIdea(ctx context.Context, input NewIdea) (Idea, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO ideas (idea_number, subject, description, country, department, cluster,
			workflow_version, expected_benefit, implementation_effort, priority, status,
			current_step, submitter_id)
		VALUES ('ID-' || lpad(nextval('idea_number_seq')::text, 3, '0'),
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, input.Subject, input.Description, input.Country, input.Department, input.Cluster,
		input.WorkflowVersion, input.ExpectedBenefit, input.ImplementationEffort,
		input.Priority, input.Status, input.CurrentStep, input.SubmitterID).Scan(&id)
	if err != nil {
		return Idea{}, fmt.Errorf("insert idea: %w", err)
	}
	return s.GetIdea(ctx, id)
}

func (s *PostgresStore) UpdateIdeaContent(ctx context.Context, ideaID int64, subject, description string, expectedBenefit *string) (Idea, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE ideas
		SET subject=$2, description=$3, expected_benefit=$4, updated_at=NOW()
		WHERE id=$1
	`, ideaID, subject, description, expectedBenefit)
	if err != nil {
		return Idea{}, fmt.Errorf("update idea: %w", err)
	}
	return s.GetIdea(ctx, ideaID)
}

// ── Workflow steps ──

const stepColumns = `id, idea_id, step_name, assigned_role, status, action_taken, comments, score, implementation_effort, completed_at, created_at`

func scanStep(row interface{ Scan(...any) error }) (WorkflowStep, error) {
	var step WorkflowStep
	err := row.Scan(&step.ID, &step.IdeaID, &step.StepName, &step.AssignedRole, &step.Status,
		&step.ActionTaken, &step.Comments, &step.Score, &step.ImplementationEffort,
		&step.CompletedAt, &step.CreatedAt)
	return step, err
}

func (s *PostgresStore) CreateWorkflowStep(ctx context.Context, ideaID int64, stepName, assignedRole string) (WorkflowStep, error) {
	step, err := scanStep(s.db.QueryRowContext(ctx, `
		INSERT INTO workflow_steps (idea_id, step_name, assigned_role)
		VALUES ($1, $2, $3)
		RETURNING `+stepColumns, ideaID, stepName, assignedRole))
	if err != nil {
		return WorkflowStep{}, fmt.Errorf("create workflow step: %w", err)
	}
	return step, nil
}

func (s *PostgresStore) GetPendingStep(ctx context.Context, ideaID int64) (*WorkflowStep, error) {
	step, err := scanStep(s.db.QueryRowContext(ctx, `
		SELECT `+stepColumns+` FROM workflow_steps WHERE idea_id=$1 AND status='Pending'
	`, ideaID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending step: %w", err)
	}
	return &step, nil
}

func (s *PostgresStore) ListWorkflowSteps(ctx context.Context, ideaID int64) ([]WorkflowStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ws.id, ws.idea_id, ws.step_name, ws.assigned_role, ws.status, ws.action_taken,
			ws.comments, ws.score, ws.implementation_effort, ws.completed_at, ws.created_at,
			sc.financial_score, sc.process_score, sc.impact_score, sc.customer_satisfaction_score,
			sc.ehs_score, sc.originality_score, sc.total_score, sc.comments
		FROM workflow_steps ws
		LEFT JOIN idea_scores sc ON sc.workflow_step_id = ws.id
		WHERE ws.idea_id=$1
		ORDER BY ws.created_at ASC
	`, ideaID)
	if err != nil {
		return nil, fmt.Errorf("list workflow steps: %w", err)
	}
	defer rows.Close()

	steps := make([]WorkflowStep, 0)
	for rows.Next() {
		var step WorkflowStep
		var financial, process, impact, customer, ehs, originality, total *int
		var scoreComments *string
		if err := rows.Scan(&step.ID, &step.IdeaID, &step.StepName, &step.AssignedRole, &step.Status,
			&step.ActionTaken, &step.Comments, &step.Score, &step.ImplementationEffort,
			&step.CompletedAt, &step.CreatedAt,
			&financial, &process, &impact, &customer, &ehs, &originality, &total, &scoreComments); err != nil {
			return nil, fmt.Errorf("scan workflow step: %w", err)
		}
		if financial != nil {
			step.Scores = &IdeaScore{
				FinancialScore:            *financial,
				ProcessScore:              *process,
				ImpactScore:               *impact,
				CustomerSatisfactionScore: *customer,
				EHSScore:                  *ehs,
				OriginalityScore:          *originality,
				TotalScore:                *total,
				Comments:                  scoreComments,
			}
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// RubricInput is the six-criterion scoring sheet from an enhanced review.
type RubricInput struct {
	FinancialScore            int
	ProcessScore              int
	ImpactScore               int
	CustomerSatisfactionScore int
	EHSScore                  int
	OriginalityScore          int
	Comments                  *string
}

// ApplyReviewInput captures everything a review transition persists.
type ApplyReviewInput struct {
	IdeaID               int64
	ExpectedStep         string
	Action               string
	Comments             *string
	Score                *int
	ReviewerID           int64
	NewStatus            string
	NextStep             string // empty means current_step is unchanged
	NextRole             string // empty means the new step is terminal, no pending instance
	ImplementationEffort *string
	Rubric               *RubricInput
}

type ApplyReviewResult struct {
	ClosedStepID int64
	NextStepID   int64
}

// ApplyReview closes the pending step, moves the idea and opens the next step
// in one transaction. The idea row is locked for the duration and the caller's
// view of current_step is re-checked, so concurrent reviewers cannot both
// advance the same idea; the loser gets ErrStepConflict or ErrNoPendingStep.
func (s *PostgresStore) ApplyReview(ctx context.Context, input ApplyReviewInput) (ApplyReviewResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ApplyReviewResult{}, fmt.Errorf("begin review tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var currentStep string
	if err := tx.QueryRowContext(ctx, `SELECT current_step FROM ideas WHERE id=$1 FOR UPDATE`, input.IdeaID).Scan(&currentStep); err != nil {
		return ApplyReviewResult{}, fmt.Errorf("lock idea: %w", err)
	}
	if currentStep != input.ExpectedStep {
		return ApplyReviewResult{}, ErrStepConflict
	}

	var result ApplyReviewResult
	err = tx.QueryRowContext(ctx, `
		UPDATE workflow_steps
		SET status='Completed', action_taken=$2, comments=$3, score=$4,
			implementation_effort=COALESCE($5, implementation_effort), completed_at=NOW()
		WHERE idea_id=$1 AND status='Pending'
		RETURNING id
	`, input.IdeaID, input.Action, input.Comments, input.Score, input.ImplementationEffort).Scan(&result.ClosedStepID)
	if errors.Is(err, sql.ErrNoRows) {
		return ApplyReviewResult{}, ErrNoPendingStep
	}
	if err != nil {
		return ApplyReviewResult{}, fmt.Errorf("close pending step: %w", err)
	}

	newStep := currentStep
	if input.NextStep != "" {
		newStep = input.NextStep
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE ideas SET status=$2, current_step=$3, updated_at=NOW() WHERE id=$1
	`, input.IdeaID, input.NewStatus, newStep); err != nil {
		return ApplyReviewResult{}, fmt.Errorf("update idea state: %w", err)
	}

	if input.NextStep != "" && input.NextRole != "" {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO workflow_steps (idea_id, step_name, assigned_role)
			VALUES ($1, $2, $3)
			RETURNING id
		`, input.IdeaID, input.NextStep, input.NextRole).Scan(&result.NextStepID); err != nil {
			return ApplyReviewResult{}, fmt.Errorf("create next step: %w", err)
		}
	}

	if input.Rubric != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO idea_scores (idea_id, user_id, workflow_step_id, financial_score,
				process_score, impact_score, customer_satisfaction_score, ehs_score,
				originality_score, comments)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, input.IdeaID, input.ReviewerID, result.ClosedStepID,
			input.Rubric.FinancialScore, input.Rubric.ProcessScore, input.Rubric.ImpactScore,
			input.Rubric.CustomerSatisfactionScore, input.Rubric.EHSScore,
			input.Rubric.OriginalityScore, input.Rubric.Comments); err != nil {
			return ApplyReviewResult{}, fmt.Errorf("insert rubric scores: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ApplyReviewResult{}, fmt.Errorf("commit review tx: %w", err)
	}
	return result, nil
}

// ── Votes ──

func (s *PostgresStore) GetVote(ctx context.Context, ideaID, userID int64) (*Vote, error) {
	var vote Vote
	err := s.db.QueryRowContext(ctx, `
		SELECT id, idea_id, user_id, vote_type, created_at
		FROM idea_votes WHERE idea_id=$1 AND user_id=$2
	`, ideaID, userID).Scan(&vote.ID, &vote.IdeaID, &vote.UserID, &vote.VoteType, &vote.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vote: %w", err)
	}
	return &vote, nil
}

func (s *PostgresStore) InsertVote(ctx context.Context, ideaID, userID int64, voteType string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO idea_votes (idea_id, user_id, vote_type) VALUES ($1, $2, $3)
	`, ideaID, userID, voteType)
	if err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateVote(ctx context.Context, voteID int64, voteType string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE idea_votes SET vote_type=$2 WHERE id=$1`, voteID, voteType)
	if err != nil {
		return fmt.Errorf("update vote: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteVote(ctx context.Context, voteID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM idea_votes WHERE id=$1`, voteID)
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	return nil
}

func (s *PostgresStore) VoteCount(ctx context.Context, ideaID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE vote_type WHEN 'upvote' THEN 1 WHEN 'downvote' THEN -1 ELSE 0 END), 0)
		FROM idea_votes WHERE idea_id=$1
	`, ideaID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return count, nil
}

// ── Comments ──

func (s *PostgresStore) InsertComment(ctx context.Context, ideaID, userID int64, comment, commentType string) (Comment, error) {
	var item Comment
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO idea_comments (idea_id, user_id, comment, comment_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, idea_id, user_id, comment, comment_type, created_at
	`, ideaID, userID, comment, commentType).Scan(&item.ID, &item.IdeaID, &item.UserID, &item.Comment, &item.CommentType, &item.CreatedAt)
	if err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListComments(ctx context.Context, ideaID int64, since *time.Time) ([]Comment, error) {
	query := `
		SELECT c.id, c.idea_id, c.user_id, u.name, c.comment, c.comment_type, c.created_at
		FROM idea_comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.idea_id=$1`
	args := []any{ideaID}
	if since != nil {
		query += ` AND c.created_at >= $2`
		args = append(args, *since)
	}
	query += ` ORDER BY c.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]Comment, 0)
	for rows.Next() {
		var item Comment
		if err := rows.Scan(&item.ID, &item.IdeaID, &item.UserID, &item.UserName, &item.Comment, &item.CommentType, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, item)
	}
	return comments, rows.Err()
}

// ListIdeaIDsWithCommentsSince returns ideas that received a comment at or
// after the cutoff, most recently commented first.
func (s *PostgresStore) ListIdeaIDsWithCommentsSince(ctx context.Context, since time.Time) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idea_id
		FROM idea_comments
		WHERE created_at >= $1
		GROUP BY idea_id
		ORDER BY MAX(created_at) DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("list commented ideas: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan idea id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ── Attachments ──

func (s *PostgresStore) InsertAttachment(ctx context.Context, item Attachment) (Attachment, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO idea_attachments (idea_id, file_name, file_type, file_size, storage_key, url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, uploaded_at
	`, item.IdeaID, item.FileName, item.FileType, item.FileSize, item.StorageKey, item.URL).Scan(&item.ID, &item.UploadedAt)
	if err != nil {
		return Attachment{}, fmt.Errorf("insert attachment: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListAttachments(ctx context.Context, ideaID int64) ([]Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, idea_id, file_name, file_type, file_size, storage_key, url, uploaded_at
		FROM idea_attachments WHERE idea_id=$1 ORDER BY uploaded_at ASC
	`, ideaID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	attachments := make([]Attachment, 0)
	for rows.Next() {
		var item Attachment
		if err := rows.Scan(&item.ID, &item.IdeaID, &item.FileName, &item.FileType, &item.FileSize, &item.StorageKey, &item.URL, &item.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachments = append(attachments, item)
	}
	return attachments, rows.Err()
}

// ── Reference data ──

func (s *PostgresStore) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, department_code, department_name, country, cluster, created_at
		FROM departments ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	departments := make([]Department, 0)
	for rows.Next() {
		var item Department
		if err := rows.Scan(&item.ID, &item.DepartmentCode, &item.DepartmentName, &item.Country, &item.Cluster, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		departments = append(departments, item)
	}
	return departments, rows.Err()
}

func (s *PostgresStore) InsertDepartment(ctx context.Context, item Department) (Department, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO departments (department_code, department_name, country, cluster)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, item.DepartmentCode, item.DepartmentName, item.Country, item.Cluster).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return Department{}, fmt.Errorf("insert department: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) UpdateDepartment(ctx context.Context, item Department) (Department, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE departments
		SET department_code=$2, department_name=$3, country=$4, cluster=$5
		WHERE id=$1
		RETURNING id, department_code, department_name, country, cluster, created_at
	`, item.ID, item.DepartmentCode, item.DepartmentName, item.Country, item.Cluster).Scan(
		&item.ID, &item.DepartmentCode, &item.DepartmentName, &item.Country, &item.Cluster, &item.CreatedAt)
	if err != nil {
		return Department{}, fmt.Errorf("update department: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteDepartment(ctx context.Context, departmentID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM departments WHERE id=$1`, departmentID)
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListClusters(ctx context.Context) ([]Cluster, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, country, created_at FROM clusters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	defer rows.Close()

	clusters := make([]Cluster, 0)
	for rows.Next() {
		var item Cluster
		if err := rows.Scan(&item.ID, &item.Name, &item.Country, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		clusters = append(clusters, item)
	}
	return clusters, rows.Err()
}

func (s *PostgresStore) ListCountries(ctx context.Context) ([]Country, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code, name, created_at FROM countries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	defer rows.Close()

	countries := make([]Country, 0)
	for rows.Next() {
		var item Country
		if err := rows.Scan(&item.ID, &item.Code, &item.Name, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		countries = append(countries, item)
	}
	return countries, rows.Err()
}

// ── Email notifications ──

func (s *PostgresStore) InsertEmailNotification(ctx context.Context, item EmailNotification) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO email_notifications (idea_id, recipient_email, subject, message, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, item.IdeaID, item.RecipientEmail, item.Subject, item.Message, item.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert email notification: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) MarkNotificationSent(ctx context.Context, notificationID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE email_notifications SET status='sent', sent_at=NOW() WHERE id=$1
	`, notificationID)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}
