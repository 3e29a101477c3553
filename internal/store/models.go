package store

import "time"

type User struct {
	ID         int64     `json:"id"`
	ZohoID     string    `json:"zoho_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	IsAdmin    bool      `json:"is_admin"`
	Country    *string   `json:"country"`
	Department *string   `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Idea struct {
	ID                   int64     `json:"id"`
	IdeaNumber           string    `json:"idea_number"`
	Subject              string    `json:"subject"`
	Description          string    `json:"description"`
	Country              *string   `json:"country"`
	Department           *string   `json:"department"`
	Cluster              *string   `json:"cluster"`
	WorkflowVersion      *string   `json:"workflow_version"`
	ExpectedBenefit      *string   `json:"expected_benefit"`
	ImplementationEffort *string   `json:"implementation_effort"`
	Priority             string    `json:"priority"`
	Status               string    `json:"status"`
	CurrentStep          string    `json:"current_step"`
	SubmitterID          int64     `json:"submitter_id"`
	SubmitterName        string    `json:"submitter_name,omitempty"`
	VoteCount            int       `json:"vote_count"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type WorkflowStep struct {
	ID                   int64      `json:"id"`
	IdeaID               int64      `json:"idea_id"`
	StepName             string     `json:"step_name"`
	AssignedRole         string     `json:"assigned_role"`
	Status               string     `json:"status"`
	ActionTaken          *string    `json:"action_taken"`
	Comments             *string    `json:"comments"`
	Score                *int       `json:"score"`
	ImplementationEffort *string    `json:"implementation_effort"`
	CompletedAt          *time.Time `json:"completed_at"`
	CreatedAt            time.Time  `json:"created_at"`
	// Rubric from the enhanced review that closed this step, if any.
	Scores *IdeaScore `json:"idea_scores,omitempty"`
}

type IdeaScore struct {
	FinancialScore            int     `json:"financial_score"`
	ProcessScore              int     `json:"process_score"`
	ImpactScore               int     `json:"impact_score"`
	CustomerSatisfactionScore int     `json:"customer_satisfaction_score"`
	EHSScore                  int     `json:"ehs_score"`
	OriginalityScore          int     `json:"originality_score"`
	TotalScore                int     `json:"total_score"`
	Comments                  *string `json:"comments"`
}

type Vote struct {
	ID        int64     `json:"id"`
	IdeaID    int64     `json:"idea_id"`
	UserID    int64     `json:"user_id"`
	VoteType  string    `json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
}

type Comment struct {
	ID          int64     `json:"id"`
	IdeaID      int64     `json:"idea_id"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name,omitempty"`
	Comment     string    `json:"comment"`
	CommentType string    `json:"comment_type"`
	CreatedAt   time.Time `json:"created_at"`
}

type Attachment struct {
	ID         int64     `json:"id"`
	IdeaID     int64     `json:"idea_id"`
	FileName   string    `json:"file_name"`
	FileType   *string   `json:"file_type"`
	FileSize   *int64    `json:"file_size"`
	StorageKey string    `json:"storage_key"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type Department struct {
	ID             int64     `json:"id"`
	DepartmentCode string    `json:"department_code"`
	DepartmentName string    `json:"department_name"`
	Country        *string   `json:"country"`
	Cluster        *string   `json:"cluster"`
	CreatedAt      time.Time `json:"created_at"`
}

type Cluster struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Country   *string   `json:"country"`
	CreatedAt time.Time `json:"created_at"`
}

type Country struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type EmailNotification struct {
	ID             int64      `json:"id"`
	IdeaID         *int64     `json:"idea_id"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	Message        string     `json:"message"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at"`
	CreatedAt      time.Time  `json:"created_at"`
}
