package types

// ContextKey is the type used for values stashed on a context.Context so
// they don't collide with keys set by other packages.
type ContextKey string

const (
	// ContextKeyUsage carries the usage tag (e.g. "entity_extraction",
	// "summarization") an LLM call is being made for, read by the router to
	// pick a model/client per call site.
	ContextKeyUsage ContextKey = "chrongraph_usage"

	// ContextKeyUserID, ContextKeySessionID and ContextKeyRequestSource
	// carry request-scoped identifiers plumbed through to telemetry records.
	ContextKeyUserID        ContextKey = "chrongraph_user_id"
	ContextKeySessionID     ContextKey = "chrongraph_session_id"
	ContextKeyRequestSource ContextKey = "chrongraph_request_source"

	// ContextKeyIngestionSource records which ingestion pipeline step
	// (add_episode, episode_update, etc.) produced a given log entry.
	ContextKeyIngestionSource ContextKey = "chrongraph_ingestion_source"

	// ContextKeySystemCall marks a call as internal maintenance/system
	// traffic rather than a user-initiated request, for telemetry filtering.
	ContextKeySystemCall ContextKey = "chrongraph_system_call"
)
