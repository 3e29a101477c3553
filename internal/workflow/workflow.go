// Package workflow holds the idea review state machine: which step follows a
// reviewer action, what status label the idea carries, and which role owns the
// next step.
package workflow

type Step string
type Action string

const (
	StepAPIPromoterReview    Step = "API_PROMOTER_REVIEW"
	StepIdeasCommitteeReview Step = "IDEAS_COMMITTEE_REVIEW"
	StepLineExecutiveReview  Step = "LINE_EXECUTIVE_REVIEW"
	StepImplementation       Step = "IMPLEMENTATION"
	StepMonitoring           Step = "MONITORING"
	StepCompleted            Step = "COMPLETED"
)

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionEscalate Action = "escalate"
)

const (
	StatusSubmitted          = "Submitted for review"
	StatusApproved           = "Approved for Implementation"
	StatusEscalatedCommittee = "Escalated to Committee"
	StatusEscalatedExecutive = "Escalated to Executive"
	StatusRejected           = "Rejected"
	StatusMonitoring         = "Under Monitoring"
	StatusCompleted          = "Completed"
)

// FirstStep is where every new idea enters the workflow.
const FirstStep = StepAPIPromoterReview

// Transition is the outcome of applying an action at a step.
type Transition struct {
	// NextStep is empty when the idea stays where it is (reject).
	NextStep Step
	Status   string
	// NoOp marks an action that is silently ignored at this step
	// (escalate outside the two escalatable reviews).
	NoOp bool
}

type key struct {
	step   Step
	action Action
}

var transitions = map[key]Transition{
	{StepAPIPromoterReview, ActionApprove}:     {NextStep: StepImplementation, Status: StatusApproved},
	{StepAPIPromoterReview, ActionEscalate}:    {NextStep: StepIdeasCommitteeReview, Status: StatusEscalatedCommittee},
	{StepAPIPromoterReview, ActionReject}:      {Status: StatusRejected},
	{StepIdeasCommitteeReview, ActionApprove}:  {NextStep: StepImplementation, Status: StatusApproved},
	{StepIdeasCommitteeReview, ActionEscalate}: {NextStep: StepLineExecutiveReview, Status: StatusEscalatedExecutive},
	{StepIdeasCommitteeReview, ActionReject}:   {Status: StatusRejected},
	{StepLineExecutiveReview, ActionApprove}:   {NextStep: StepImplementation, Status: StatusApproved},
	{StepLineExecutiveReview, ActionReject}:    {Status: StatusRejected},
	{StepImplementation, ActionApprove}:        {NextStep: StepMonitoring, Status: StatusMonitoring},
	{StepMonitoring, ActionApprove}:            {NextStep: StepCompleted, Status: StatusCompleted},
}

// Next resolves the transition for an action at a step. ok is false when the
// action is not permitted at this step at all; a returned NoOp transition
// means the caller should do nothing and report success.
func Next(current Step, action Action) (Transition, bool) {
	if t, found := transitions[key{current, action}]; found {
		return t, true
	}
	// Escalation is only meaningful from the two lower reviews; elsewhere it
	// is a silent no-op rather than an error.
	if action == ActionEscalate && current != StepCompleted && ValidStep(current) {
		return Transition{NoOp: true}, true
	}
	return Transition{}, false
}

// RoleForStep returns the reviewer role that owns a step's pending instance.
func RoleForStep(step Step) string {
	switch step {
	case StepAPIPromoterReview:
		return "API Promoter"
	case StepIdeasCommitteeReview:
		return "Ideas Committee"
	case StepLineExecutiveReview:
		return "Line Executive"
	case StepImplementation:
		return "BU Manager"
	case StepMonitoring:
		return "Ideas Committee"
	default:
		return "Admin"
	}
}

func ValidStep(step Step) bool {
	switch step {
	case StepAPIPromoterReview, StepIdeasCommitteeReview, StepLineExecutiveReview,
		StepImplementation, StepMonitoring, StepCompleted:
		return true
	default:
		return false
	}
}

func ValidAction(action Action) bool {
	switch action {
	case ActionApprove, ActionReject, ActionEscalate:
		return true
	default:
		return false
	}
}
