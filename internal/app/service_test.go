package app

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ideasportal/api/internal/erp"
	"ideasportal/api/internal/rbac"
	"ideasportal/api/internal/session"
	"ideasportal/api/internal/store"
	"ideasportal/api/internal/workflow"
	"ideasportal/api/internal/zoho"
)

// fakeStore implements dataStore with overridable func fields; unset methods
// return zero values.
type fakeStore struct {
	pingFn func(context.Context) error

	upsertUserByZohoIDFn   func(ctx context.Context, zohoID, email, name string, country *string) (store.User, error)
	getUserByZohoIDFn      func(context.Context, string) (store.User, error)
	getUserByIDFn          func(context.Context, int64) (store.User, error)
	listUserEmailsByRoleFn func(context.Context, string) ([]string, error)
	listUsersByRoleFn      func(context.Context, string) ([]store.User, error)

	listIdeasFn         func(context.Context, store.IdeaFilter) ([]store.Idea, error)
	listIdeasByIDsFn    func(context.Context, []int64) ([]store.Idea, error)
	getIdeaFn           func(context.Context, int64) (store.Idea, error)
	insertIdeaFn        func(context.Context, store.NewIdea) (store.Idea, error)
	updateIdeaContentFn func(ctx context.Context, ideaID int64, subject, description string, expectedBenefit *string) (store.Idea, error)

	createWorkflowStepFn func(ctx context.Context, ideaID int64, stepName, assignedRole string) (store.WorkflowStep, error)
	getPendingStepFn     func(context.Context, int64) (*store.WorkflowStep, error)
	listWorkflowStepsFn  func(context.Context, int64) ([]store.WorkflowStep, error)
	applyReviewFn        func(context.Context, store.ApplyReviewInput) (store.ApplyReviewResult, error)

	getVoteFn    func(ctx context.Context, ideaID, userID int64) (*store.Vote, error)
	insertVoteFn func(ctx context.Context, ideaID, userID int64, voteType string) error
	updateVoteFn func(ctx context.Context, voteID int64, voteType string) error
	deleteVoteFn func(ctx context.Context, voteID int64) error
	voteCountFn  func(ctx context.Context, ideaID int64) (int, error)

	insertCommentFn                func(ctx context.Context, ideaID, userID int64, comment, commentType string) (store.Comment, error)
	listCommentsFn                 func(ctx context.Context, ideaID int64, since *time.Time) ([]store.Comment, error)
	listIdeaIDsWithCommentsSinceFn func(context.Context, time.Time) ([]int64, error)

	insertAttachmentFn func(context.Context, store.Attachment) (store.Attachment, error)
	listAttachmentsFn  func(context.Context, int64) ([]store.Attachment, error)

	listDepartmentsFn  func(context.Context) ([]store.Department, error)
	insertDepartmentFn func(context.Context, store.Department) (store.Department, error)
	updateDepartmentFn func(context.Context, store.Department) (store.Department, error)
	deleteDepartmentFn func(context.Context, int64) error
	listClustersFn     func(context.Context) ([]store.Cluster, error)
	listCountriesFn    func(context.Context) ([]store.Country, error)

	insertEmailNotificationFn func(context.Context, store.EmailNotification) (int64, error)
	markNotificationSentFn    func(context.Context, int64) error
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeStore) UpsertUserByZohoID(ctx context.Context, zohoID, email, name string, country *string) (store.User, error) {
	if f.upsertUserByZohoIDFn != nil {
		return f.upsertUserByZohoIDFn(ctx, zohoID, email, name, country)
	}
	return store.User{}, nil
}

func (f *fakeStore) GetUserByZohoID(ctx context.Context, zohoID string) (store.User, error) {
	if f.getUserByZohoIDFn != nil {
		return f.getUserByZohoIDFn(ctx, zohoID)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID int64) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, userID)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) ListUserEmailsByRole(ctx context.Context, role string) ([]string, error) {
	if f.listUserEmailsByRoleFn != nil {
		return f.listUserEmailsByRoleFn(ctx, role)
	}
	return nil, nil
}

func (f *fakeStore) ListUsersByRole(ctx context.Context, role string) ([]store.User, error) {
	if f.listUsersByRoleFn != nil {
		return f.listUsersByRoleFn(ctx, role)
	}
	return nil, nil
}

func (f *fakeStore) ListIdeas(ctx context.Context, filter store.IdeaFilter) ([]store.Idea, error) {
	if f.listIdeasFn != nil {
		return f.listIdeasFn(ctx, filter)
	}
	return nil, nil
}

func (f *fakeStore) ListIdeasByIDs(ctx context.Context, ids []int64) ([]store.Idea, error) {
	if f.listIdeasByIDsFn != nil {
		return f.listIdeasByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (f *fakeStore) GetIdea(ctx context.Context, ideaID int64) (store.Idea, error) {
	if f.getIdeaFn != nil {
		return f.getIdeaFn(ctx, ideaID)
	}
	return store.Idea{}, sql.ErrNoRows
}

func (f *fakeStore) InsertIdea(ctx context.Context, input store.NewIdea) (store.Idea, error) {
	if f.insertIdeaFn != nil {
		return f.insertIdeaFn(ctx, input)
	}
	return store.Idea{}, nil
}

func (f *fakeStore) UpdateIdeaContent(ctx context.Context, ideaID int64, subject, description string, expectedBenefit *string) (store.Idea, error) {
	if f.updateIdeaContentFn != nil {
		return f.updateIdeaContentFn(ctx, ideaID, subject, description, expectedBenefit)
	}
	return store.Idea{}, nil
}

func (f *fakeStore) CreateWorkflowStep(ctx context.Context, ideaID int64, stepName, assignedRole string) (store.WorkflowStep, error) {
	if f.createWorkflowStepFn != nil {
		return f.createWorkflowStepFn(ctx, ideaID, stepName, assignedRole)
	}
	return store.WorkflowStep{}, nil
}

func (f *fakeStore) GetPendingStep(ctx context.Context, ideaID int64) (*store.WorkflowStep, error) {
	if f.getPendingStepFn != nil {
		return f.getPendingStepFn(ctx, ideaID)
	}
	return nil, nil
}

func (f *fakeStore) ListWorkflowSteps(ctx context.Context, ideaID int64) ([]store.WorkflowStep, error) {
	if f.listWorkflowStepsFn != nil {
		return f.listWorkflowStepsFn(ctx, ideaID)
	}
	return nil, nil
}

func (f *fakeStore) ApplyReview(ctx context.Context, input store.ApplyReviewInput) (store.ApplyReviewResult, error) {
	if f.applyReviewFn != nil {
		return f.applyReviewFn(ctx, input)
	}
	return store.ApplyReviewResult{}, nil
}

func (f *fakeStore) GetVote(ctx context.Context, ideaID, userID int64) (*store.Vote, error) {
	if f.getVoteFn != nil {
		return f.getVoteFn(ctx, ideaID, userID)
	}
	return nil, nil
}

func (f *fakeStore) InsertVote(ctx context.Context, ideaID, userID int64, voteType string) error {
	if f.insertVoteFn != nil {
		return f.insertVoteFn(ctx, ideaID, userID, voteType)
	}
	return nil
}

func (f *fakeStore) UpdateVote(ctx context.Context, voteID int64, voteType string) error {
	if f.updateVoteFn != nil {
		return f.updateVoteFn(ctx, voteID, voteType)
	}
	return nil
}

func (f *fakeStore) DeleteVote(ctx context.Context, voteID int64) error {
	if f.deleteVoteFn != nil {
		return f.deleteVoteFn(ctx, voteID)
	}
	return nil
}

func (f *fakeStore) VoteCount(ctx context.Context, ideaID int64) (int, error) {
	if f.voteCountFn != nil {
		return f.voteCountFn(ctx, ideaID)
	}
	return 0, nil
}

func (f *fakeStore) InsertComment(ctx context.Context, ideaID, userID int64, comment, commentType string) (store.Comment, error) {
	if f.insertCommentFn != nil {
		return f.insertCommentFn(ctx, ideaID, userID, comment, commentType)
	}
	return store.Comment{}, nil
}

func (f *fakeStore) ListComments(ctx context.Context, ideaID int64, since *time.Time) ([]store.Comment, error) {
	if f.listCommentsFn != nil {
		return f.listCommentsFn(ctx, ideaID, since)
	}
	return nil, nil
}

func (f *fakeStore) ListIdeaIDsWithCommentsSince(ctx context.Context, since time.Time) ([]int64, error) {
	if f.listIdeaIDsWithCommentsSinceFn != nil {
		return f.listIdeaIDsWithCommentsSinceFn(ctx, since)
	}
	return nil, nil
}

func (f *fakeStore) InsertAttachment(ctx context.Context, item store.Attachment) (store.Attachment, error) {
	if f.insertAttachmentFn != nil {
		return f.insertAttachmentFn(ctx, item)
	}
	return item, nil
}

func (f *fakeStore) ListAttachments(ctx context.Context, ideaID int64) ([]store.Attachment, error) {
	if f.listAttachmentsFn != nil {
		return f.listAttachmentsFn(ctx, ideaID)
	}
	return nil, nil
}

func (f *fakeStore) ListDepartments(ctx context.Context) ([]store.Department, error) {
	if f.listDepartmentsFn != nil {
		return f.listDepartmentsFn(ctx)
	}
	return nil, nil
}

func (f *fakeStore) InsertDepartment(ctx context.Context, item store.Department) (store.Department, error) {
	if f.insertDepartmentFn != nil {
		return f.insertDepartmentFn(ctx, item)
	}
	return item, nil
}

func (f *fakeStore) UpdateDepartment(ctx context.Context, item store.Department) (store.Department, error) {
	if f.updateDepartmentFn != nil {
		return f.updateDepartmentFn(ctx, item)
	}
	return item, nil
}

func (f *fakeStore) DeleteDepartment(ctx context.Context, departmentID int64) error {
	if f.deleteDepartmentFn != nil {
		return f.deleteDepartmentFn(ctx, departmentID)
	}
	return nil
}

func (f *fakeStore) ListClusters(ctx context.Context) ([]store.Cluster, error) {
	if f.listClustersFn != nil {
		return f.listClustersFn(ctx)
	}
	return nil, nil
}

func (f *fakeStore) ListCountries(ctx context.Context) ([]store.Country, error) {
	if f.listCountriesFn != nil {
		return f.listCountriesFn(ctx)
	}
	return nil, nil
}

func (f *fakeStore) InsertEmailNotification(ctx context.Context, item store.EmailNotification) (int64, error) {
	if f.insertEmailNotificationFn != nil {
		return f.insertEmailNotificationFn(ctx, item)
	}
	return 1, nil
}

func (f *fakeStore) MarkNotificationSent(ctx context.Context, notificationID int64) error {
	if f.markNotificationSentFn != nil {
		return f.markNotificationSentFn(ctx, notificationID)
	}
	return nil
}

type fakeSessions struct {
	data map[string]session.Data
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{data: make(map[string]session.Data)}
}

func (f *fakeSessions) Save(_ context.Context, token string, data session.Data) error {
	f.data[token] = data
	return nil
}

func (f *fakeSessions) Lookup(_ context.Context, token string) (session.Data, error) {
	data, ok := f.data[token]
	if !ok {
		return session.Data{}, session.ErrNotFound
	}
	return data, nil
}

func (f *fakeSessions) Revoke(_ context.Context, token string) error {
	delete(f.data, token)
	return nil
}

func (f *fakeSessions) Ping(context.Context) error { return nil }

type fakeOAuth struct {
	profile zoho.Profile
	fail    bool
}

func (f *fakeOAuth) IsConfigured() bool { return true }

func (f *fakeOAuth) ExchangeCode(context.Context, string) (zoho.Token, error) {
	if f.fail {
		return zoho.Token{}, errors.New("exchange failed")
	}
	return zoho.Token{AccessToken: "at"}, nil
}

func (f *fakeOAuth) FetchProfile(context.Context, string) (zoho.Profile, error) {
	if f.fail {
		return zoho.Profile{}, errors.New("profile failed")
	}
	return f.profile, nil
}

type fakeERP struct {
	locations []erp.Location
	err       error
}

func (f *fakeERP) IsConfigured() bool { return true }

func (f *fakeERP) FetchLocations(context.Context, string) ([]erp.Location, error) {
	return f.locations, f.err
}

type fakeMedia struct {
	uploads int
}

func (f *fakeMedia) Upload(_ context.Context, filename, _ string, _ int64, r io.Reader) (string, string, error) {
	_, _ = io.Copy(io.Discard, r)
	f.uploads++
	return "attachments/key-" + filename, "http://storage.local/bucket/attachments/key-" + filename, nil
}

func newTestService(st dataStore) *Service {
	return NewService(st, newFakeSessions(), &fakeOAuth{}, &fakeERP{}, &fakeMedia{}, nil, nil,
		"http://localhost:3000/dashboard", zerolog.Nop())
}

func initiator(id int64) Identity {
	return Identity{
		User: store.User{ID: id, Name: "Initiator", Email: "initiator@example.com", Role: string(rbac.RoleInitiator)},
		Role: rbac.RoleInitiator,
	}
}

func promoter(id int64) Identity {
	return Identity{
		User: store.User{ID: id, Name: "Promoter", Email: "promoter@example.com", Role: string(rbac.RoleAPIPromoter)},
		Role: rbac.RoleAPIPromoter,
	}
}

func admin(id int64) Identity {
	return Identity{
		User: store.User{ID: id, Name: "Admin", Email: "admin@example.com", Role: string(rbac.RoleAdmin), IsAdmin: true},
		Role: rbac.RoleAdmin,
	}
}

func wantDomainError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("err = %v, want DomainError", err)
	}
	if domainErr.Status != status || domainErr.Code != code {
		t.Fatalf("err = %d %s, want %d %s", domainErr.Status, domainErr.Code, status, code)
	}
}

func TestCreateIdeaValidation(t *testing.T) {
	svc := newTestService(&fakeStore{})

	cases := []struct {
		name  string
		input CreateIdeaInput
	}{
		{name: "missing subject", input: CreateIdeaInput{Description: "details"}},
		{name: "missing description", input: CreateIdeaInput{Subject: "title"}},
		{name: "blank subject", input: CreateIdeaInput{Subject: "   ", Description: "details"}},
		{name: "bad priority", input: CreateIdeaInput{Subject: "title", Description: "details", Priority: "Urgent"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateIdea(context.Background(), initiator(1), tc.input)
			wantDomainError(t, err, http.StatusBadRequest, "VALIDATION_ERROR")
		})
	}
}

func TestCreateIdeaOpensFirstStep(t *testing.T) {
	var inserted store.NewIdea
	var stepName, stepRole string
	st := &fakeStore{
		insertIdeaFn: func(_ context.Context, input store.NewIdea) (store.Idea, error) {
			inserted = input
			return store.Idea{ID: 42, IdeaNumber: "ID-042", Subject: input.Subject,
				Status: input.Status, CurrentStep: input.CurrentStep, SubmitterID: input.SubmitterID}, nil
		},
		createWorkflowStepFn: func(_ context.Context, ideaID int64, name, role string) (store.WorkflowStep, error) {
			if ideaID != 42 {
				t.Errorf("step opened for idea %d", ideaID)
			}
			stepName, stepRole = name, role
			return store.WorkflowStep{ID: 1, IdeaID: ideaID, StepName: name, AssignedRole: role, Status: "Pending"}, nil
		},
	}
	svc := newTestService(st)

	idea, err := svc.CreateIdea(context.Background(), initiator(7), CreateIdeaInput{
		Subject: "Reduce forklift idle time", Description: "Details here",
	})
	if err != nil {
		t.Fatalf("CreateIdea: %v", err)
	}
	if idea.ID != 42 {
		t.Fatalf("idea id = %d", idea.ID)
	}
	if inserted.Status != workflow.StatusSubmitted || inserted.CurrentStep != string(workflow.StepAPIPromoterReview) {
		t.Fatalf("idea inserted as %q at %q", inserted.Status, inserted.CurrentStep)
	}
	if inserted.Priority != "Medium" {
		t.Fatalf("default priority = %q", inserted.Priority)
	}
	if stepName != string(workflow.StepAPIPromoterReview) || stepRole != "API Promoter" {
		t.Fatalf("first step = %q for %q", stepName, stepRole)
	}
}

func TestCreateIdeaSurvivesStepFailure(t *testing.T) {
	st := &fakeStore{
		insertIdeaFn: func(_ context.Context, input store.NewIdea) (store.Idea, error) {
			return store.Idea{ID: 9, Subject: input.Subject}, nil
		},
		createWorkflowStepFn: func(context.Context, int64, string, string) (store.WorkflowStep, error) {
			return store.WorkflowStep{}, errors.New("db hiccup")
		},
	}
	svc := newTestService(st)

	idea, err := svc.CreateIdea(context.Background(), initiator(1), CreateIdeaInput{
		Subject: "title", Description: "details",
	})
	if err != nil {
		t.Fatalf("CreateIdea should survive a step failure, got %v", err)
	}
	if idea.ID != 9 {
		t.Fatalf("idea id = %d", idea.ID)
	}
}

func reviewFake(ideaStep string) (*fakeStore, *store.ApplyReviewInput) {
	captured := &store.ApplyReviewInput{}
	current := ideaStep
	st := &fakeStore{
		getIdeaFn: func(context.Context, int64) (store.Idea, error) {
			return store.Idea{ID: 5, IdeaNumber: "ID-005", Subject: "idea", SubmitterID: 2, CurrentStep: current}, nil
		},
		applyReviewFn: func(_ context.Context, input store.ApplyReviewInput) (store.ApplyReviewResult, error) {
			*captured = input
			if input.NextStep != "" {
				current = input.NextStep
			}
			return store.ApplyReviewResult{ClosedStepID: 1, NextStepID: 2}, nil
		},
	}
	return st, captured
}

func TestProcessReviewApproveAdvances(t *testing.T) {
	st, captured := reviewFake(string(workflow.StepAPIPromoterReview))
	svc := newTestService(st)

	result, err := svc.ProcessReview(context.Background(), promoter(3), 5, ReviewInput{Action: "approve"})
	if err != nil {
		t.Fatalf("ProcessReview: %v", err)
	}
	if !result.Transitioned {
		t.Fatal("approve should transition")
	}
	if captured.NewStatus != workflow.StatusApproved {
		t.Fatalf("status = %q", captured.NewStatus)
	}
	if captured.NextStep != string(workflow.StepImplementation) || captured.NextRole != "BU Manager" {
		t.Fatalf("next step = %q for %q", captured.NextStep, captured.NextRole)
	}
	if captured.ExpectedStep != string(workflow.StepAPIPromoterReview) {
		t.Fatalf("expected step = %q", captured.ExpectedStep)
	}
}

func TestProcessReviewRejectKeepsStep(t *testing.T) {
	st, captured := reviewFake(string(workflow.StepAPIPromoterReview))
	svc := newTestService(st)

	result, err := svc.ProcessReview(context.Background(), promoter(3), 5, ReviewInput{Action: "reject"})
	if err != nil {
		t.Fatalf("ProcessReview: %v", err)
	}
	if !result.Transitioned {
		t.Fatal("reject should close the step")
	}
	if captured.NewStatus != workflow.StatusRejected {
		t.Fatalf("status = %q", captured.NewStatus)
	}
	if captured.NextStep != "" {
		t.Fatalf("reject moved the idea to %q", captured.NextStep)
	}
}

func TestProcessReviewMonitoringApproveCompletes(t *testing.T) {
	st, captured := reviewFake(string(workflow.StepMonitoring))
	svc := newTestService(st)

	committee := Identity{
		User: store.User{ID: 4, Role: string(rbac.RoleCommittee)},
		Role: rbac.RoleCommittee,
	}
	result, err := svc.ProcessReview(context.Background(), committee, 5, ReviewInput{Action: "approve"})
	if err != nil {
		t.Fatalf("ProcessReview: %v", err)
	}
	if !result.Transitioned {
		t.Fatal("approve at monitoring should transition")
	}
	if captured.NextStep != string(workflow.StepCompleted) {
		t.Fatalf("next step = %q", captured.NextStep)
	}
	if captured.NextRole != "" {
		t.Fatalf("completed must not open a pending step, role = %q", captured.NextRole)
	}
}

func TestProcessReviewEscalateIsNoOp(t *testing.T) {
	applied := false
	st := &fakeStore{
		getIdeaFn: func(context.Context, int64) (store.Idea, error) {
			return store.Idea{ID: 5, SubmitterID: 2, CurrentStep: string(workflow.StepImplementation)}, nil
		},
		applyReviewFn: func(context.Context, store.ApplyReviewInput) (store.ApplyReviewResult, error) {
			applied = true
			return store.ApplyReviewResult{}, nil
		},
	}
	svc := newTestService(st)

	buManager := Identity{
		User: store.User{ID: 8, Role: string(rbac.RoleBUManager)},
		Role: rbac.RoleBUManager,
	}
	result, err := svc.ProcessReview(context.Background(), buManager, 5, ReviewInput{Action: "escalate"})
	if err != nil {
		t.Fatalf("ProcessReview: %v", err)
	}
	if result.Transitioned {
		t.Fatal("escalate at implementation must be a no-op")
	}
	if applied {
		t.Fatal("no-op must not touch the pending step")
	}
}

func TestProcessReviewActionNotPermitted(t *testing.T) {
	st, _ := reviewFake(string(workflow.StepMonitoring))
	svc := newTestService(st)

	committee := Identity{
		User: store.User{ID: 4, Role: string(rbac.RoleCommittee)},
		Role: rbac.RoleCommittee,
	}
	_, err := svc.ProcessReview(context.Background(), committee, 5, ReviewInput{Action: "reject"})
	wantDomainError(t, err, http.StatusConflict, "ACTION_NOT_PERMITTED")
}

func TestProcessReviewWrongRole(t *testing.T) {
	st, _ := reviewFake(string(workflow.StepIdeasCommitteeReview))
	svc := newTestService(st)

	// A promoter cannot act on a committee step.
	_, err := svc.ProcessReview(context.Background(), promoter(3), 5, ReviewInput{Action: "approve"})
	wantDomainError(t, err, http.StatusForbidden, "FORBIDDEN")

	// An initiator cannot review at all.
	_, err = svc.ProcessReview(context.Background(), initiator(1), 5, ReviewInput{Action: "approve"})
	wantDomainError(t, err, http.StatusForbidden, "FORBIDDEN")
}

func TestProcessReviewAdminReviewsAnywhere(t *testing.T) {
	st, captured := reviewFake(string(workflow.StepLineExecutiveReview))
	svc := newTestService(st)

	result, err := svc.ProcessReview(context.Background(), admin(99), 5, ReviewInput{Action: "approve"})
	if err != nil {
		t.Fatalf("ProcessReview: %v", err)
	}
	if !result.Transitioned || captured.NextStep != string(workflow.StepImplementation) {
		t.Fatalf("admin approve: transitioned %v, next %q", result.Transitioned, captured.NextStep)
	}
}

func TestProcessReviewConflict(t *testing.T) {
	st := &fakeStore{
		getIdeaFn: func(context.Context, int64) (store.Idea, error) {
			return store.Idea{ID: 5, SubmitterID: 2, CurrentStep: string(workflow.StepAPIPromoterReview)}, nil
		},
		applyReviewFn: func(context.Context, store.ApplyReviewInput) (store.ApplyReviewResult, error) {
			return store.ApplyReviewResult{}, store.ErrStepConflict
		},
	}
	svc := newTestService(st)

	_, err := svc.ProcessReview(context.Background(), promoter(3), 5, ReviewInput{Action: "approve"})
	wantDomainError(t, err, http.StatusConflict, "REVIEW_CONFLICT")
}

func TestEnhancedReviewRubricValidation(t *testing.T) {
	st, _ := reviewFake(string(workflow.StepAPIPromoterReview))
	svc := newTestService(st)

	_, err := svc.ProcessReview(context.Background(), promoter(3), 5, ReviewInput{
		Action: "approve",
		Rubric: &RubricScores{FinancialScore: 0, ProcessScore: 2, ImpactScore: 2,
			CustomerSatisfactionScore: 2, EHSScore: 2, OriginalityScore: 4},
	})
	wantDomainError(t, err, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestEnhancedReviewPassesRubricThrough(t *testing.T) {
	st, captured := reviewFake(string(workflow.StepAPIPromoterReview))
	svc := newTestService(st)

	_, err := svc.ProcessReview(context.Background(), promoter(3), 5, ReviewInput{
		Action: "approve",
		Rubric: &RubricScores{FinancialScore: 3, ProcessScore: 2, ImpactScore: 1,
			CustomerSatisfactionScore: 2, EHSScore: 3, OriginalityScore: 1},
	})
	if err != nil {
		t.Fatalf("ProcessReview: %v", err)
	}
	if captured.Rubric == nil {
		t.Fatal("rubric not persisted")
	}
	if captured.Rubric.FinancialScore != 3 || captured.Rubric.OriginalityScore != 1 {
		t.Fatalf("rubric = %+v", captured.Rubric)
	}
}

func TestVoteToggle(t *testing.T) {
	var stored *store.Vote
	var inserted, updated, deleted int
	st := &fakeStore{
		getIdeaFn: func(context.Context, int64) (store.Idea, error) {
			return store.Idea{ID: 5}, nil
		},
		getVoteFn: func(context.Context, int64, int64) (*store.Vote, error) {
			return stored, nil
		},
		insertVoteFn: func(_ context.Context, ideaID, userID int64, voteType string) error {
			inserted++
			stored = &store.Vote{ID: 1, IdeaID: ideaID, UserID: userID, VoteType: voteType}
			return nil
		},
		updateVoteFn: func(_ context.Context, _ int64, voteType string) error {
			updated++
			stored.VoteType = voteType
			return nil
		},
		deleteVoteFn: func(context.Context, int64) error {
			deleted++
			stored = nil
			return nil
		},
	}
	svc := newTestService(st)
	ident := initiator(7)
	ctx := context.Background()

	// No vote yet: cast.
	result, err := svc.Vote(ctx, ident, 5, "upvote")
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if inserted != 1 || result.UserVote == nil || *result.UserVote != "upvote" {
		t.Fatalf("cast: inserted %d, userVote %v", inserted, result.UserVote)
	}

	// Opposite vote: switch.
	result, err = svc.Vote(ctx, ident, 5, "downvote")
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if updated != 1 || result.UserVote == nil || *result.UserVote != "downvote" {
		t.Fatalf("switch: updated %d, userVote %v", updated, result.UserVote)
	}

	// Same vote again: withdraw.
	result, err = svc.Vote(ctx, ident, 5, "downvote")
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if deleted != 1 || result.UserVote != nil {
		t.Fatalf("withdraw: deleted %d, userVote %v", deleted, result.UserVote)
	}
}

func TestVoteRejectsUnknownType(t *testing.T) {
	svc := newTestService(&fakeStore{})
	_, err := svc.Vote(context.Background(), initiator(1), 5, "maybe")
	wantDomainError(t, err, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestListIdeasScopedByRole(t *testing.T) {
	var captured store.IdeaFilter
	st := &fakeStore{
		listIdeasFn: func(_ context.Context, filter store.IdeaFilter) ([]store.Idea, error) {
			captured = filter
			return []store.Idea{}, nil
		},
	}
	svc := newTestService(st)
	ctx := context.Background()

	if _, err := svc.ListIdeas(ctx, initiator(7)); err != nil {
		t.Fatalf("ListIdeas: %v", err)
	}
	if captured.SubmitterID == nil || *captured.SubmitterID != 7 {
		t.Fatalf("initiator filter = %+v", captured)
	}

	if _, err := svc.ListIdeas(ctx, promoter(3)); err != nil {
		t.Fatalf("ListIdeas: %v", err)
	}
	if len(captured.Steps) != 1 || captured.Steps[0] != string(workflow.StepAPIPromoterReview) {
		t.Fatalf("promoter filter = %+v", captured)
	}

	if _, err := svc.ListIdeas(ctx, admin(99)); err != nil {
		t.Fatalf("ListIdeas: %v", err)
	}
	if captured.SubmitterID != nil || len(captured.Steps) != 0 {
		t.Fatalf("admin filter = %+v", captured)
	}
}

func TestRecentlyCommentedRequiresCommittee(t *testing.T) {
	svc := newTestService(&fakeStore{})
	_, err := svc.RecentlyCommented(context.Background(), initiator(1), 0)
	wantDomainError(t, err, http.StatusForbidden, "FORBIDDEN")
}

func TestSyncLocations(t *testing.T) {
	existingCluster := "East"
	existing := []store.Department{
		{ID: 1, DepartmentCode: "NBO", DepartmentName: "Old Name", Cluster: &existingCluster},
	}
	var insertedCodes, updatedCodes []string
	st := &fakeStore{
		listDepartmentsFn: func(context.Context) ([]store.Department, error) {
			return existing, nil
		},
		insertDepartmentFn: func(_ context.Context, item store.Department) (store.Department, error) {
			insertedCodes = append(insertedCodes, item.DepartmentCode)
			return item, nil
		},
		updateDepartmentFn: func(_ context.Context, item store.Department) (store.Department, error) {
			updatedCodes = append(updatedCodes, item.DepartmentCode)
			return item, nil
		},
	}
	erpClient := &fakeERP{locations: []erp.Location{
		{Code: "NBO", Name: "Nairobi HQ", Zone: "East", CountryRegionCode: "KE"},
		{Code: "MBA", Name: "Mombasa Depot", Zone: "Coast", CountryRegionCode: "KE"},
		{Code: "", Name: "broken row"},
	}}
	svc := NewService(st, newFakeSessions(), &fakeOAuth{}, erpClient, &fakeMedia{}, nil, nil,
		"http://localhost:3000/dashboard", zerolog.Nop())

	result, err := svc.SyncLocations(context.Background(), admin(99), "KE")
	if err != nil {
		t.Fatalf("SyncLocations: %v", err)
	}
	if result.Created != 1 || result.Updated != 1 || result.Total != 2 {
		t.Fatalf("result = %+v", result)
	}
	if len(insertedCodes) != 1 || insertedCodes[0] != "MBA" {
		t.Fatalf("inserted = %v", insertedCodes)
	}
	if len(updatedCodes) != 1 || updatedCodes[0] != "NBO" {
		t.Fatalf("updated = %v", updatedCodes)
	}
}

func TestSyncLocationsRequiresAdmin(t *testing.T) {
	svc := newTestService(&fakeStore{})
	_, err := svc.SyncLocations(context.Background(), promoter(3), "KE")
	wantDomainError(t, err, http.StatusForbidden, "FORBIDDEN")
}

func TestLoginWithZoho(t *testing.T) {
	var upsertedZohoID string
	st := &fakeStore{
		upsertUserByZohoIDFn: func(_ context.Context, zohoID, email, name string, _ *string) (store.User, error) {
			upsertedZohoID = zohoID
			return store.User{ID: 11, ZohoID: zohoID, Email: email, Name: name, Role: "Initiator"}, nil
		},
	}
	sessions := newFakeSessions()
	oauth := &fakeOAuth{profile: zoho.Profile{ZohoID: "z-77", Email: "nia@example.com", DisplayName: "Nia"}}
	svc := NewService(st, sessions, oauth, &fakeERP{}, &fakeMedia{}, nil, nil,
		"http://localhost:3000/dashboard", zerolog.Nop())

	token, user, err := svc.LoginWithZoho(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("LoginWithZoho: %v", err)
	}
	if upsertedZohoID != "z-77" || user.ID != 11 {
		t.Fatalf("upserted %q, user %+v", upsertedZohoID, user)
	}
	if _, ok := sessions.data[token]; !ok {
		t.Fatal("session not saved")
	}

	// And the session resolves back to the user.
	st.getUserByZohoIDFn = func(_ context.Context, zohoID string) (store.User, error) {
		if zohoID != "z-77" {
			t.Errorf("lookup by %q", zohoID)
		}
		return user, nil
	}
	ident, err := svc.IdentityFromToken(context.Background(), token)
	if err != nil {
		t.Fatalf("IdentityFromToken: %v", err)
	}
	if ident.User.ID != 11 || ident.Role != rbac.RoleInitiator {
		t.Fatalf("identity = %+v", ident)
	}
}

func TestLoginWithZohoExchangeFailure(t *testing.T) {
	svc := NewService(&fakeStore{}, newFakeSessions(), &fakeOAuth{fail: true}, &fakeERP{}, &fakeMedia{}, nil, nil,
		"http://localhost:3000/dashboard", zerolog.Nop())

	_, _, err := svc.LoginWithZoho(context.Background(), "bad-code")
	wantDomainError(t, err, http.StatusUnauthorized, "OAUTH_FAILED")
}
