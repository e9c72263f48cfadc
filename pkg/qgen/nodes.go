package qgen

// Node names registered with the agent graph.
const (
	NodeRouter           = "router"
	NodeGenerateArtifact = "generate_questions"
	NodeUpdateArtifact   = "update_questions"
	NodeRewriteQuestion  = "rewrite_question"
	NodeRewriteTheme     = "rewrite_theme"
	NodeRespondQuery     = "respond_query"
	NodeFollowup         = "generate_followup"
	NodeReflect          = "reflect"
	NodeCleanState       = "clean_state"
)
