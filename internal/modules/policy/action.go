package policy

// Action names an intent a caller wants to perform.
type Action string

const (
	ActionSubmitProject Action = "submit_project"
	ActionReviewProject Action = "review_project"
	ActionViewProject   Action = "view_project"
	ActionListProjects  Action = "list_projects"
	ActionPostComment   Action = "post_comment"
	ActionViewAnalytics Action = "view_analytics"
	ActionEditProfile   Action = "edit_profile"
	ActionViewProfile   Action = "view_profile"
	ActionEditProject   Action = "edit_project"
	ActionUseAssistant  Action = "use_assistant"
)

// Actions lists every action with a default rule.
var Actions = []Action{
	ActionSubmitProject,
	ActionReviewProject,
	ActionViewProject,
	ActionListProjects,
	ActionPostComment,
	ActionViewAnalytics,
	ActionEditProfile,
	ActionViewProfile,
	ActionEditProject,
	ActionUseAssistant,
}
