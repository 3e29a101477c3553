package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ideasportal/api/internal/erp"
	"ideasportal/api/internal/rbac"
	"ideasportal/api/internal/search"
	"ideasportal/api/internal/session"
	"ideasportal/api/internal/store"
	"ideasportal/api/internal/util"
	"ideasportal/api/internal/workflow"
	"ideasportal/api/internal/zoho"
)

// Identity is the resolved caller of a request: the portal user plus the role
// the capability table recognises. It is resolved once per request so a role
// change mid-request cannot split a decision.
type Identity struct {
	User store.User
	Role rbac.Role
}

var allowedPriorities = map[string]struct{}{
	"Low":    {},
	"Medium": {},
	"High":   {},
}

var allowedVoteTypes = map[string]struct{}{
	"upvote":   {},
	"downvote": {},
}

type dataStore interface {
	Ping(context.Context) error

	UpsertUserByZohoID(ctx context.Context, zohoID, email, name string, country *string) (store.User, error)
	GetUserByZohoID(context.Context, string) (store.User, error)
	GetUserByID(context.Context, int64) (store.User, error)
	ListUsersByRole(context.Context, string) ([]store.User, error)
	ListUserEmailsByRole(context.Context, string) ([]string, error)

	ListIdeas(context.Context, store.IdeaFilter) ([]store.Idea, error)
	ListIdeasByIDs(context.Context, []int64) ([]store.Idea, error)
	GetIdea(context.Context, int64) (store.Idea, error)
	InsertIdea(context.Context, store.NewIdea) (store.Idea, error)
	UpdateIdeaContent(ctx context.Context, ideaID int64, subject, description string, expectedBenefit *string) (store.Idea, error)

	CreateWorkflowStep(ctx context.Context, ideaID int64, stepName, assignedRole string) (store.WorkflowStep, error)
	GetPendingStep(context.Context, int64) (*store.WorkflowStep, error)
	ListWorkflowSteps(context.Context, int64) ([]store.WorkflowStep, error)
	ApplyReview(context.Context, store.ApplyReviewInput) (store.ApplyReviewResult, error)

	GetVote(ctx context.Context, ideaID, userID int64) (*store.Vote, error)
	InsertVote(ctx context.Context, ideaID, userID int64, voteType string) error
	UpdateVote(ctx context.Context, voteID int64, voteType string) error
	DeleteVote(ctx context.Context, voteID int64) error
	VoteCount(ctx context.Context, ideaID int64) (int, error)

	InsertComment(ctx context.Context, ideaID, userID int64, comment, commentType string) (store.Comment, error)
	ListComments(ctx context.Context, ideaID int64, since *time.Time) ([]store.Comment, error)
	ListIdeaIDsWithCommentsSince(context.Context, time.Time) ([]int64, error)

	InsertAttachment(context.Context, store.Attachment) (store.Attachment, error)
	ListAttachments(context.Context, int64) ([]store.Attachment, error)

	ListDepartments(context.Context) ([]store.Department, error)
	InsertDepartment(context.Context, store.Department) (store.Department, error)
	UpdateDepartment(context.Context, store.Department) (store.Department, error)
	DeleteDepartment(context.Context, int64) error
	ListClusters(context.Context) ([]store.Cluster, error)
	ListCountries(context.Context) ([]store.Country, error)

	InsertEmailNotification(context.Context, store.EmailNotification) (int64, error)
	MarkNotificationSent(context.Context, int64) error
}

type sessionStore interface {
	Save(ctx context.Context, token string, data session.Data) error
	Lookup(ctx context.Context, token string) (session.Data, error)
	Revoke(ctx context.Context, token string) error
	Ping(ctx context.Context) error
}

type oauthClient interface {
	IsConfigured() bool
	ExchangeCode(ctx context.Context, code string) (zoho.Token, error)
	FetchProfile(ctx context.Context, accessToken string) (zoho.Profile, error)
}

type locationsClient interface {
	IsConfigured() bool
	FetchLocations(ctx context.Context, country string) ([]erp.Location, error)
}

type MediaStore interface {
	Upload(ctx context.Context, filename, contentType string, size int64, r io.Reader) (key, url string, err error)
}

type ideaSearch interface {
	Search(q search.Query) search.Response
	IndexIdea(idea search.IdeaRecord)
}

type mailer interface {
	IsConfigured() bool
	SendReviewOutcomeEmail(to, userName, ideaNumber, ideaSubject, message, ideaURL string) error
	SendPendingReviewEmail(to []string, ideaNumber, ideaSubject, stage, ideaURL string) error
}

type Service struct {
	store        dataStore
	sessions     sessionStore
	oauth        oauthClient
	erp          locationsClient
	media        MediaStore
	search       ideaSearch
	mail         mailer
	dashboardURL string
	log          zerolog.Logger
}

func NewService(store dataStore, sessions sessionStore, oauth oauthClient, erpClient locationsClient,
	media MediaStore, searchSvc ideaSearch, mail mailer, dashboardURL string, logger zerolog.Logger) *Service {
	return &Service{
		store:        store,
		sessions:     sessions,
		oauth:        oauth,
		erp:          erpClient,
		media:        media,
		search:       searchSvc,
		mail:         mail,
		dashboardURL: dashboardURL,
		log:          logger,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) PingSessions(ctx context.Context) error {
	return s.sessions.Ping(ctx)
}

// ── Authentication ──

// LoginWithZoho completes the OAuth dance: code -> token -> profile -> portal
// user, then mints an opaque session token.
func (s *Service) LoginWithZoho(ctx context.Context, code string) (string, store.User, error) {
	if s.oauth == nil || !s.oauth.IsConfigured() {
		return "", store.User{}, domainError(http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Login is not configured", nil)
	}
	if strings.TrimSpace(code) == "" {
		return "", store.User{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "code is required", nil)
	}

	token, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		s.log.Warn().Err(err).Msg("zoho code exchange failed")
		return "", store.User{}, domainError(http.StatusUnauthorized, "OAUTH_FAILED", "Could not verify the login code", nil)
	}

	profile, err := s.oauth.FetchProfile(ctx, token.AccessToken)
	if err != nil {
		s.log.Warn().Err(err).Msg("zoho profile fetch failed")
		return "", store.User{}, domainError(http.StatusUnauthorized, "OAUTH_FAILED", "Could not read the login profile", nil)
	}

	user, err := s.store.UpsertUserByZohoID(ctx, profile.ZohoID, profile.Email, profile.Name(), nil)
	if err != nil {
		return "", store.User{}, err
	}

	sessionToken := util.NewID("sess")
	if err := s.sessions.Save(ctx, sessionToken, session.Data{
		ZohoID: user.ZohoID,
		Email:  user.Email,
		Name:   user.Name,
	}); err != nil {
		return "", store.User{}, err
	}

	s.log.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("user logged in")
	return sessionToken, user, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, token)
}

// IdentityFromToken resolves a session cookie to the caller's identity.
func (s *Service) IdentityFromToken(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	}
	data, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		return Identity{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	}
	user, err := s.store.GetUserByZohoID(ctx, data.ZohoID)
	if err != nil {
		return Identity{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	}
	role := rbac.Normalize(user.Role)
	if user.IsAdmin {
		role = rbac.RoleAdmin
	}
	return Identity{User: user, Role: role}, nil
}

// ── Ideas ──

// ListIdeas returns the caller's queue: admins see everything, reviewers the
// ideas sitting at their step, initiators their own submissions.
func (s *Service) ListIdeas(ctx context.Context, ident Identity) ([]store.Idea, error) {
	steps, all, ownOnly := rbac.VisibleSteps(ident.Role)
	switch {
	case all:
		return s.store.ListIdeas(ctx, store.IdeaFilter{})
	case ownOnly:
		submitterID := ident.User.ID
		return s.store.ListIdeas(ctx, store.IdeaFilter{SubmitterID: &submitterID})
	default:
		names := make([]string, len(steps))
		for i, step := range steps {
			names[i] = string(step)
		}
		return s.store.ListIdeas(ctx, store.IdeaFilter{Steps: names})
	}
}

// SearchIdeas runs full-text search scoped to the caller's queue.
func (s *Service) SearchIdeas(ctx context.Context, ident Identity, text string, limit, offset int) (search.Response, error) {
	if s.search == nil {
		return search.Response{}, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search is not configured", nil)
	}

	q := search.Query{Text: text, Limit: limit, Offset: offset}
	steps, all, ownOnly := rbac.VisibleSteps(ident.Role)
	switch {
	case all:
	case ownOnly:
		q.SubmitterID = fmt.Sprintf("%d", ident.User.ID)
	default:
		names := make([]string, len(steps))
		for i, step := range steps {
			names[i] = string(step)
		}
		q.Steps = names
	}
	return s.search.Search(q), nil
}

// CreateIdeaInput carries the submission form.
type CreateIdeaInput struct {
	Subject         string  `json:"subject"`
	Description     string  `json:"description"`
	Country         *string `json:"country"`
	Department      *string `json:"department"`
	Cluster         *string `json:"cluster"`
	ExpectedBenefit *string `json:"expected_benefit"`
	Priority        string  `json:"priority"`
}

// CreateIdea persists a new idea and opens its first review step. The idea
// survives even when opening the step fails; a submission is never lost to a
// notification-side hiccup.
func (s *Service) CreateIdea(ctx context.Context, ident Identity, input CreateIdeaInput) (store.Idea, error) {
	if !rbac.Can(ident.Role, rbac.ActionSubmit) {
		return store.Idea{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	var missing []string
	if strings.TrimSpace(input.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(input.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return store.Idea{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR",
			"subject and description are required", map[string]any{"missing": missing})
	}

	priority := input.Priority
	if priority == "" {
		priority = "Medium"
	}
	if _, ok := allowedPriorities[priority]; !ok {
		return store.Idea{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR",
			"priority must be Low, Medium or High", nil)
	}

	country := input.Country
	if country == nil {
		country = ident.User.Country
	}
	department := input.Department
	if department == nil {
		department = ident.User.Department
	}

	idea, err := s.store.InsertIdea(ctx, store.NewIdea{
		Subject:         strings.TrimSpace(input.Subject),
		Description:     strings.TrimSpace(input.Description),
		Country:         country,
		Department:      department,
		Cluster:         input.Cluster,
		ExpectedBenefit: input.ExpectedBenefit,
		Priority:        priority,
		Status:          workflow.StatusSubmitted,
		CurrentStep:     string(workflow.FirstStep),
		SubmitterID:     ident.User.ID,
	})
	if err != nil {
		return store.Idea{}, err
	}

	if _, err := s.store.CreateWorkflowStep(ctx, idea.ID, string(workflow.FirstStep),
		workflow.RoleForStep(workflow.FirstStep)); err != nil {
		s.log.Warn().Err(err).Int64("idea_id", idea.ID).Msg("could not open first workflow step")
	}

	s.indexIdea(idea)
	s.notifyPendingReviewers(ctx, idea, workflow.FirstStep)

	s.log.Info().Str("idea_number", idea.IdeaNumber).Int64("submitter", ident.User.ID).Msg("idea created")
	return idea, nil
}

// IdeaDetail is everything the idea page shows.
type IdeaDetail struct {
	Idea        store.Idea           `json:"idea"`
	Steps       []store.WorkflowStep `json:"workflow_steps"`
	Comments    []store.Comment      `json:"comments"`
	Attachments []store.Attachment   `json:"attachments"`
	UserVote    *string              `json:"user_vote"`
}

func (s *Service) GetIdeaDetail(ctx context.Context, ident Identity, ideaID int64) (IdeaDetail, error) {
	idea, err := s.store.GetIdea(ctx, ideaID)
	if err != nil {
		return IdeaDetail{}, err
	}

	steps, err := s.store.ListWorkflowSteps(ctx, ideaID)
	if err != nil {
		return IdeaDetail{}, err
	}
	comments, err := s.store.ListComments(ctx, ideaID, nil)
	if err != nil {
		return IdeaDetail{}, err
	}
	attachments, err := s.store.ListAttachments(ctx, ideaID)
	if err != nil {
		return IdeaDetail{}, err
	}

	detail := IdeaDetail{Idea: idea, Steps: steps, Comments: comments, Attachments: attachments}
	if vote, err := s.store.GetVote(ctx, ideaID, ident.User.ID); err == nil && vote != nil {
		detail.UserVote = &vote.VoteType
	}
	return detail, nil
}

// UpdateIdeaInput carries an idea edit.
type UpdateIdeaInput struct {
	Subject         string  `json:"subject"`
	Description     string  `json:"description"`
	ExpectedBenefit *string `json:"expected_benefit"`
}

// UpdateIdea lets the submitter, the committee or an admin refine an idea's
// content. Workflow position is never editable this way.
func (s *Service) UpdateIdea(ctx context.Context, ident Identity, ideaID int64, input UpdateIdeaInput) (store.Idea, error) {
	idea, err := s.store.GetIdea(ctx, ideaID)
	if err != nil {
		return store.Idea{}, err
	}

	if idea.SubmitterID != ident.User.ID && !rbac.Can(ident.Role, rbac.ActionEditIdea) {
		return store.Idea{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if strings.TrimSpace(input.Subject) == "" || strings.TrimSpace(input.Description) == "" {
		return store.Idea{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR",
			"subject and description are required", nil)
	}

	updated, err := s.store.UpdateIdeaContent(ctx, ideaID,
		strings.TrimSpace(input.Subject), strings.TrimSpace(input.Description), input.ExpectedBenefit)
	if err != nil {
		return store.Idea{}, err
	}

	s.indexIdea(updated)
	return updated, nil
}

// ── Votes ──

// VoteResult reports the vote state after a toggle.
type VoteResult struct {
	VoteCount int     `json:"vote_count"`
	UserVote  *string `json:"user_vote"`
}

// Vote toggles the caller's vote: no vote -> cast, same vote -> withdraw,
// opposite vote -> switch.
func (s *Service) Vote(ctx context.Context, ident Identity, ideaID int64, voteType string) (VoteResult, error) {
	if !rbac.Can(ident.Role, rbac.ActionVote) {
		return VoteResult{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if _, ok := allowedVoteTypes[voteType]; !ok {
		return VoteResult{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR",
			"vote_type must be upvote or downvote", nil)
	}

	if _, err := s.store.GetIdea(ctx, ideaID); err != nil {
		return VoteResult{}, err
	}

	existing, err := s.store.GetVote(ctx, ideaID, ident.User.ID)
	if err != nil {
		return VoteResult{}, err
	}

	var userVote *string
	switch {
	case existing == nil:
		if err := s.store.InsertVote(ctx, ideaID, ident.User.ID, voteType); err != nil {
			// A concurrent cast by the same user landed first; treat it as applied.
			if !store.IsUniqueViolation(err) {
				return VoteResult{}, err
			}
		}
		userVote = &voteType
	case existing.VoteType == voteType:
		if err := s.store.DeleteVote(ctx, existing.ID); err != nil {
			return VoteResult{}, err
		}
	default:
		if err := s.store.UpdateVote(ctx, existing.ID, voteType); err != nil {
			return VoteResult{}, err
		}
		userVote = &voteType
	}

	count, err := s.store.VoteCount(ctx, ideaID)
	if err != nil {
		return VoteResult{}, err
	}
	return VoteResult{VoteCount: count, UserVote: userVote}, nil
}

// ── Reviews ──

// RubricScores is the six-criterion sheet from an enhanced review.
type RubricScores struct {
	FinancialScore            int     `json:"financial_score"`
	ProcessScore              int     `json:"process_score"`
	ImpactScore               int     `json:"impact_score"`
	CustomerSatisfactionScore int     `json:"customer_satisfaction_score"`
	EHSScore                  int     `json:"ehs_score"`
	OriginalityScore          int     `json:"originality_score"`
	Comments                  *string `json:"comments"`
}

// ReviewInput carries one reviewer decision.
type ReviewInput struct {
	Action               string        `json:"action"`
	Comments             *string       `json:"comments"`
	Score                *int          `json:"score"`
	ImplementationEffort *string       `json:"implementation_effort"`
	Rubric               *RubricScores `json:"idea_scores"`
}

// ReviewResult reports what the review did.
type ReviewResult struct {
	Idea         store.Idea `json:"idea"`
	Transitioned bool       `json:"transitioned"`
	NextStep     string     `json:"next_step,omitempty"`
}

// ProcessReview applies one reviewer decision to an idea. The transition is
// resolved from the state machine, persisted atomically against the idea's
// current position, and followed by best-effort notifications. A concurrent
// reviewer loses with a conflict instead of double-advancing the idea.
func (s *Service) ProcessReview(ctx context.Context, ident Identity, ideaID int64, input ReviewInput) (ReviewResult, error) {
	idea, err := s.store.GetIdea(ctx, ideaID)
	if err != nil {
		return ReviewResult{}, err
	}

	action := workflow.Action(input.Action)
	if !workflow.ValidAction(action) {
		return ReviewResult{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR",
			"action must be approve, reject or escalate", nil)
	}
	if input.Rubric != nil {
		if err := validateRubric(*input.Rubric); err != nil {
			return ReviewResult{}, err
		}
	}

	currentStep := workflow.Step(idea.CurrentStep)
	if !s.mayReview(ident, currentStep) {
		return ReviewResult{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	transition, ok := workflow.Next(currentStep, action)
	if !ok {
		return ReviewResult{}, domainError(http.StatusConflict, "ACTION_NOT_PERMITTED",
			fmt.Sprintf("%s is not permitted at %s", action, idea.CurrentStep), nil)
	}
	if transition.NoOp {
		// Nothing moves and the pending step stays open.
		return ReviewResult{Idea: idea, Transitioned: false}, nil
	}

	applyInput := store.ApplyReviewInput{
		IdeaID:               ideaID,
		ExpectedStep:         idea.CurrentStep,
		Action:               string(action),
		Comments:             input.Comments,
		Score:                input.Score,
		ReviewerID:           ident.User.ID,
		NewStatus:            transition.Status,
		ImplementationEffort: input.ImplementationEffort,
	}
	if input.Rubric != nil {
		applyInput.Rubric = &store.RubricInput{
			FinancialScore:            input.Rubric.FinancialScore,
			ProcessScore:              input.Rubric.ProcessScore,
			ImpactScore:               input.Rubric.ImpactScore,
			CustomerSatisfactionScore: input.Rubric.CustomerSatisfactionScore,
			EHSScore:                  input.Rubric.EHSScore,
			OriginalityScore:          input.Rubric.OriginalityScore,
			Comments:                  input.Rubric.Comments,
		}
	}
	if transition.NextStep != "" {
		applyInput.NextStep = string(transition.NextStep)
		if transition.NextStep != workflow.StepCompleted {
			applyInput.NextRole = workflow.RoleForStep(transition.NextStep)
		}
	}

	if _, err := s.store.ApplyReview(ctx, applyInput); err != nil {
		if errors.Is(err, store.ErrStepConflict) || errors.Is(err, store.ErrNoPendingStep) {
			return ReviewResult{}, domainError(http.StatusConflict, "REVIEW_CONFLICT",
				"The idea was reviewed by someone else, reload and try again", nil)
		}
		return ReviewResult{}, err
	}

	updated, err := s.store.GetIdea(ctx, ideaID)
	if err != nil {
		return ReviewResult{}, err
	}

	s.indexIdea(updated)
	s.notifyReviewOutcome(ctx, updated, action)
	if transition.NextStep != "" && transition.NextStep != workflow.StepCompleted {
		s.notifyPendingReviewers(ctx, updated, transition.NextStep)
	}

	s.log.Info().
		Str("idea_number", updated.IdeaNumber).
		Str("action", string(action)).
		Str("from", idea.CurrentStep).
		Str("to", updated.CurrentStep).
		Int64("reviewer", ident.User.ID).
		Msg("review applied")

	return ReviewResult{Idea: updated, Transitioned: true, NextStep: string(transition.NextStep)}, nil
}

// mayReview requires the reviewer action plus ownership of the idea's current
// step; admins review anywhere.
func (s *Service) mayReview(ident Identity, step workflow.Step) bool {
	if ident.Role == rbac.RoleAdmin {
		return true
	}
	if !rbac.Can(ident.Role, rbac.ActionReview) {
		return false
	}
	return workflow.RoleForStep(step) == string(ident.Role)
}

func validateRubric(r RubricScores) error {
	scores := map[string]int{
		"financial_score":             r.FinancialScore,
		"process_score":               r.ProcessScore,
		"impact_score":                r.ImpactScore,
		"customer_satisfaction_score": r.CustomerSatisfactionScore,
		"ehs_score":                   r.EHSScore,
		"originality_score":           r.OriginalityScore,
	}
	var invalid []string
	for name, score := range scores {
		if score < 1 || score > 3 {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		return domainError(http.StatusBadRequest, "VALIDATION_ERROR",
			"scores must be between 1 and 3", map[string]any{"invalid": invalid})
	}
	return nil
}

// ── Comments ──

func (s *Service) AddComment(ctx context.Context, ident Identity, ideaID int64, text, commentType string) (store.Comment, error) {
	if !rbac.Can(ident.Role, rbac.ActionComment) {
		return store.Comment{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if strings.TrimSpace(text) == "" {
		return store.Comment{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "comment is required", nil)
	}
	if commentType == "" {
		commentType = "general"
	}

	if _, err := s.store.GetIdea(ctx, ideaID); err != nil {
		return store.Comment{}, err
	}

	comment, err := s.store.InsertComment(ctx, ideaID, ident.User.ID, strings.TrimSpace(text), commentType)
	if err != nil {
		return store.Comment{}, err
	}
	comment.UserName = ident.User.Name
	return comment, nil
}

func (s *Service) ListIdeaComments(ctx context.Context, ideaID int64) ([]store.Comment, error) {
	if _, err := s.store.GetIdea(ctx, ideaID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, ideaID, nil)
}

// ── Committee views ──

// CommitteeQueue lists the ideas parked at the committee's two steps.
func (s *Service) CommitteeQueue(ctx context.Context, ident Identity) ([]store.Idea, error) {
	if ident.Role != rbac.RoleCommittee && ident.Role != rbac.RoleAdmin {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	return s.store.ListIdeas(ctx, store.IdeaFilter{Steps: []string{
		string(workflow.StepIdeasCommitteeReview),
		string(workflow.StepMonitoring),
	}})
}

// RecentlyCommented lists ideas that received comments within the window,
// most recently commented first.
func (s *Service) RecentlyCommented(ctx context.Context, ident Identity, window time.Duration) ([]store.Idea, error) {
	if ident.Role != rbac.RoleCommittee && ident.Role != rbac.RoleAdmin {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	ids, err := s.store.ListIdeaIDsWithCommentsSince(ctx, time.Now().Add(-window))
	if err != nil {
		return nil, err
	}
	return s.store.ListIdeasByIDs(ctx, ids)
}

// ── Attachments ──

// AttachFile uploads one file to object storage and records it on the idea.
func (s *Service) AttachFile(ctx context.Context, ident Identity, ideaID int64, filename, contentType string, size int64, r io.Reader) (store.Attachment, error) {
	if s.media == nil {
		return store.Attachment{}, domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "File storage is not configured", nil)
	}
	if strings.TrimSpace(filename) == "" {
		return store.Attachment{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "file is required", nil)
	}

	idea, err := s.store.GetIdea(ctx, ideaID)
	if err != nil {
		return store.Attachment{}, err
	}
	if idea.SubmitterID != ident.User.ID && !rbac.Can(ident.Role, rbac.ActionEditIdea) && ident.Role != rbac.RoleAdmin {
		return store.Attachment{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	key, url, err := s.media.Upload(ctx, filename, contentType, size, r)
	if err != nil {
		return store.Attachment{}, err
	}

	attachment := store.Attachment{
		IdeaID:     ideaID,
		FileName:   filename,
		StorageKey: key,
		URL:        url,
	}
	if contentType != "" {
		attachment.FileType = &contentType
	}
	if size > 0 {
		attachment.FileSize = &size
	}
	return s.store.InsertAttachment(ctx, attachment)
}

// ── Departments and reference data ──

type DepartmentInput struct {
	DepartmentCode string  `json:"department_code"`
	DepartmentName string  `json:"department_name"`
	Country        *string `json:"country"`
	Cluster        *string `json:"cluster"`
}

func (s *Service) ListDepartments(ctx context.Context) ([]store.Department, error) {
	return s.store.ListDepartments(ctx)
}

func (s *Service) CreateDepartment(ctx context.Context, ident Identity, input DepartmentInput) (store.Department, error) {
	if !rbac.Can(ident.Role, rbac.ActionAdmin) {
		return store.Department{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if strings.TrimSpace(input.DepartmentCode) == "" || strings.TrimSpace(input.DepartmentName) == "" {
		return store.Department{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR",
			"department_code and department_name are required", nil)
	}

	department, err := s.store.InsertDepartment(ctx, store.Department{
		DepartmentCode: strings.TrimSpace(input.DepartmentCode),
		DepartmentName: strings.TrimSpace(input.DepartmentName),
		Country:        input.Country,
		Cluster:        input.Cluster,
	})
	if store.IsUniqueViolation(err) {
		return store.Department{}, domainError(http.StatusConflict, "DEPARTMENT_EXISTS",
			"A department with this code already exists", nil)
	}
	return department, err
}

func (s *Service) UpdateDepartment(ctx context.Context, ident Identity, departmentID int64, input DepartmentInput) (store.Department, error) {
	if !rbac.Can(ident.Role, rbac.ActionAdmin) {
		return store.Department{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if strings.TrimSpace(input.DepartmentCode) == "" || strings.TrimSpace(input.DepartmentName) == "" {
		return store.Department{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR",
			"department_code and department_name are required", nil)
	}
	return s.store.UpdateDepartment(ctx, store.Department{
		ID:             departmentID,
		DepartmentCode: strings.TrimSpace(input.DepartmentCode),
		DepartmentName: strings.TrimSpace(input.DepartmentName),
		Country:        input.Country,
		Cluster:        input.Cluster,
	})
}

func (s *Service) DeleteDepartment(ctx context.Context, ident Identity, departmentID int64) error {
	if !rbac.Can(ident.Role, rbac.ActionAdmin) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	return s.store.DeleteDepartment(ctx, departmentID)
}

// SyncResult summarises one ERP location sync run.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

// SyncLocations pulls the ERP location cards for a country and reconciles them
// into the departments table, keyed by location code.
func (s *Service) SyncLocations(ctx context.Context, ident Identity, country string) (SyncResult, error) {
	if !rbac.Can(ident.Role, rbac.ActionAdmin) {
		return SyncResult{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if s.erp == nil || !s.erp.IsConfigured() {
		return SyncResult{}, domainError(http.StatusServiceUnavailable, "ERP_UNAVAILABLE", "ERP sync is not configured", nil)
	}
	if strings.TrimSpace(country) == "" {
		return SyncResult{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "country is required", nil)
	}

	locations, err := s.erp.FetchLocations(ctx, country)
	if err != nil {
		s.log.Error().Err(err).Str("country", country).Msg("erp location fetch failed")
		return SyncResult{}, domainError(http.StatusBadGateway, "ERP_ERROR", "Could not fetch locations from the ERP", nil)
	}

	existing, err := s.store.ListDepartments(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	byCode := make(map[string]store.Department, len(existing))
	for _, department := range existing {
		byCode[department.DepartmentCode] = department
	}

	var result SyncResult
	for _, location := range locations {
		if location.Code == "" {
			continue
		}
		result.Total++

		var zone *string
		if location.Zone != "" {
			z := location.Zone
			zone = &z
		}
		regionCode := location.CountryRegionCode
		if regionCode == "" {
			regionCode = country
		}
		region := regionCode

		current, found := byCode[location.Code]
		if !found {
			if _, err := s.store.InsertDepartment(ctx, store.Department{
				DepartmentCode: location.Code,
				DepartmentName: location.Name,
				Country:        &region,
				Cluster:        zone,
			}); err != nil {
				s.log.Warn().Err(err).Str("code", location.Code).Msg("sync: insert department failed")
				continue
			}
			result.Created++
			continue
		}

		current.DepartmentName = location.Name
		current.Country = &region
		current.Cluster = zone
		if _, err := s.store.UpdateDepartment(ctx, current); err != nil {
			s.log.Warn().Err(err).Str("code", location.Code).Msg("sync: update department failed")
			continue
		}
		result.Updated++
	}

	s.log.Info().Str("country", country).Int("created", result.Created).Int("updated", result.Updated).Msg("erp locations synced")
	return result, nil
}

// FormData is the reference data the submission form needs in one round trip.
type FormData struct {
	Departments []store.Department `json:"departments"`
	Clusters    []store.Cluster    `json:"clusters"`
	Countries   []store.Country    `json:"countries"`
	Priorities  []string           `json:"priorities"`
}

// ListAPIPromoters feeds the submission form's reviewer picker.
func (s *Service) ListAPIPromoters(ctx context.Context) ([]store.User, error) {
	return s.store.ListUsersByRole(ctx, string(rbac.RoleAPIPromoter))
}

func (s *Service) ListClusters(ctx context.Context) ([]store.Cluster, error) {
	return s.store.ListClusters(ctx)
}

func (s *Service) ListCountries(ctx context.Context) ([]store.Country, error) {
	return s.store.ListCountries(ctx)
}

func (s *Service) GetFormData(ctx context.Context) (FormData, error) {
	departments, err := s.store.ListDepartments(ctx)
	if err != nil {
		return FormData{}, err
	}
	clusters, err := s.store.ListClusters(ctx)
	if err != nil {
		return FormData{}, err
	}
	countries, err := s.store.ListCountries(ctx)
	if err != nil {
		return FormData{}, err
	}
	return FormData{
		Departments: departments,
		Clusters:    clusters,
		Countries:   countries,
		Priorities:  []string{"Low", "Medium", "High"},
	}, nil
}

// ── Notifications ──

var stageLabels = map[workflow.Step]string{
	workflow.StepAPIPromoterReview:    "API Promoter Review",
	workflow.StepIdeasCommitteeReview: "Ideas Committee Review",
	workflow.StepLineExecutiveReview:  "Line Executive Review",
	workflow.StepImplementation:       "Implementation",
	workflow.StepMonitoring:           "Monitoring",
	workflow.StepCompleted:            "Completed",
}

func stageLabel(step workflow.Step) string {
	if label, ok := stageLabels[step]; ok {
		return label
	}
	return string(step)
}

func pastTense(action workflow.Action) string {
	switch action {
	case workflow.ActionApprove:
		return "approved"
	case workflow.ActionReject:
		return "rejected"
	case workflow.ActionEscalate:
		return "escalated"
	default:
		return string(action)
	}
}

// notifyReviewOutcome records and, when SMTP is configured, delivers the
// submitter-facing status email. Failures are logged, never surfaced.
func (s *Service) notifyReviewOutcome(ctx context.Context, idea store.Idea, action workflow.Action) {
	submitter, err := s.store.GetUserByID(ctx, idea.SubmitterID)
	if err != nil {
		s.log.Warn().Err(err).Int64("idea_id", idea.ID).Msg("notify: could not load submitter")
		return
	}

	message := fmt.Sprintf("Your idea %q has been %s and is now in %s stage.",
		idea.Subject, pastTense(action), stageLabel(workflow.Step(idea.CurrentStep)))
	subject := fmt.Sprintf("Update on your idea %s", idea.IdeaNumber)

	s.recordAndSend(ctx, idea, submitter.Email, subject, message, func() error {
		return s.mail.SendReviewOutcomeEmail(submitter.Email, submitter.Name,
			idea.IdeaNumber, idea.Subject, message, s.ideaURL(idea.ID))
	})
}

// notifyPendingReviewers tells everyone holding the step's role that an idea
// has landed in their queue.
func (s *Service) notifyPendingReviewers(ctx context.Context, idea store.Idea, step workflow.Step) {
	role := workflow.RoleForStep(step)
	emails, err := s.store.ListUserEmailsByRole(ctx, role)
	if err != nil {
		s.log.Warn().Err(err).Str("role", role).Msg("notify: could not list reviewers")
		return
	}
	if len(emails) == 0 {
		return
	}

	stage := stageLabel(step)
	subject := fmt.Sprintf("Idea %s awaits your review", idea.IdeaNumber)
	message := fmt.Sprintf("Idea %q is awaiting review at the %s stage.", idea.Subject, stage)

	for _, recipient := range emails {
		recipient := recipient
		s.recordAndSend(ctx, idea, recipient, subject, message, func() error {
			return s.mail.SendPendingReviewEmail([]string{recipient},
				idea.IdeaNumber, idea.Subject, stage, s.ideaURL(idea.ID))
		})
	}
}

// recordAndSend writes the notification intent first, then attempts delivery.
// The row stays pending when SMTP is absent or delivery fails.
func (s *Service) recordAndSend(ctx context.Context, idea store.Idea, recipient, subject, message string, send func() error) {
	ideaID := idea.ID
	notificationID, err := s.store.InsertEmailNotification(ctx, store.EmailNotification{
		IdeaID:         &ideaID,
		RecipientEmail: recipient,
		Subject:        subject,
		Message:        message,
		Status:         "pending",
	})
	if err != nil {
		s.log.Warn().Err(err).Str("recipient", recipient).Msg("notify: could not record notification")
		return
	}

	if s.mail == nil || !s.mail.IsConfigured() {
		return
	}
	if err := send(); err != nil {
		s.log.Warn().Err(err).Str("recipient", recipient).Msg("notify: delivery failed")
		return
	}
	if err := s.store.MarkNotificationSent(ctx, notificationID); err != nil {
		s.log.Warn().Err(err).Int64("notification_id", notificationID).Msg("notify: could not mark sent")
	}
}

func (s *Service) ideaURL(ideaID int64) string {
	return fmt.Sprintf("%s/ideas/%d", strings.TrimSuffix(s.dashboardURL, "/"), ideaID)
}

func (s *Service) indexIdea(idea store.Idea) {
	if s.search == nil {
		return
	}
	s.search.IndexIdea(search.IdeaRecord{
		ID:          fmt.Sprintf("%d", idea.ID),
		IdeaNumber:  idea.IdeaNumber,
		Subject:     idea.Subject,
		Description: idea.Description,
		Status:      idea.Status,
		CurrentStep: idea.CurrentStep,
		SubmitterID: fmt.Sprintf("%d", idea.SubmitterID),
	})
}
