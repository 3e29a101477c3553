// Package rbac maps portal roles onto what they may do and which workflow
// steps their queue shows. Handlers and the review engine consult the same
// table instead of switching on role strings.
package rbac

import "ideasportal/api/internal/workflow"

type Role string
type Action string

const (
	RoleInitiator     Role = "Initiator"
	RoleAPIPromoter   Role = "API Promoter"
	RoleCommittee     Role = "Ideas Committee"
	RoleLineExecutive Role = "Line Executive"
	RoleBUManager     Role = "BU Manager"
	RoleAdmin         Role = "Admin"
)

const (
	ActionSubmit   Action = "submit"
	ActionVote     Action = "vote"
	ActionComment  Action = "comment"
	ActionReview   Action = "review"
	ActionEditIdea Action = "edit_idea"
	ActionAdmin    Action = "admin"
)

type capability struct {
	actions      map[Action]bool
	visibleSteps []workflow.Step
	// ownsAllIdeas short-circuits queue filtering: the role sees everything.
	ownsAllIdeas bool
	// ownIdeasOnly restricts the queue to the caller's own submissions.
	ownIdeasOnly bool
}

var capabilities = map[Role]capability{
	RoleInitiator: {
		actions:      actionSet(ActionSubmit, ActionVote, ActionComment),
		ownIdeasOnly: true,
	},
	RoleAPIPromoter: {
		actions:      actionSet(ActionSubmit, ActionVote, ActionComment, ActionReview),
		visibleSteps: []workflow.Step{workflow.StepAPIPromoterReview},
	},
	RoleCommittee: {
		actions:      actionSet(ActionSubmit, ActionVote, ActionComment, ActionReview, ActionEditIdea),
		visibleSteps: []workflow.Step{workflow.StepIdeasCommitteeReview, workflow.StepMonitoring},
	},
	RoleLineExecutive: {
		actions:      actionSet(ActionSubmit, ActionVote, ActionComment, ActionReview),
		visibleSteps: []workflow.Step{workflow.StepLineExecutiveReview},
	},
	RoleBUManager: {
		actions:      actionSet(ActionSubmit, ActionVote, ActionComment, ActionReview),
		visibleSteps: []workflow.Step{workflow.StepImplementation},
	},
	RoleAdmin: {
		actions:      actionSet(ActionSubmit, ActionVote, ActionComment, ActionReview, ActionEditIdea, ActionAdmin),
		ownsAllIdeas: true,
	},
}

func actionSet(actions ...Action) map[Action]bool {
	set := make(map[Action]bool, len(actions))
	for _, action := range actions {
		set[action] = true
	}
	return set
}

func Can(role Role, action Action) bool {
	entry, found := capabilities[role]
	if !found {
		return false
	}
	return entry.actions[action]
}

// VisibleSteps returns the workflow steps a role's idea queue is filtered to.
// The second return is true when the role sees every idea regardless of step;
// the third when the role only sees its own submissions.
func VisibleSteps(role Role) (steps []workflow.Step, all bool, ownOnly bool) {
	entry, found := capabilities[role]
	if !found {
		return nil, false, true
	}
	return entry.visibleSteps, entry.ownsAllIdeas, entry.ownIdeasOnly
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleInitiator, RoleAPIPromoter, RoleCommittee, RoleLineExecutive, RoleBUManager, RoleAdmin:
		return Role(role)
	default:
		return RoleInitiator
	}
}
