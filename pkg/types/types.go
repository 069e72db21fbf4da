package types

// ModelsResponse wraps the repository listing returned by GET /models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// InstanceStatus summarizes a loaded model for /status.
type InstanceStatus struct {
	// example: t5-small
	ModelID string `json:"model_id" example:"t5-small"`
	// example: 1
	Version string `json:"version" example:"1"`
	// example: summarizer
	Backend string `json:"backend" example:"summarizer"`
	// Lifecycle state: loading, ready, draining or error.
	// example: ready
	State string `json:"state" example:"ready"`
	// Last time this instance served a request (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// Requests waiting for the instance.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Executions in progress (0 or 1).
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Initialize failure, when State is error.
	Error string `json:"error,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Instances []InstanceStatus `json:"instances"`
	// Overall state: ready, loading or error.
	// example: ready
	State string `json:"state" example:"ready"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// example: 12
	LoadsTotal uint64 `json:"loads_total" example:"12"`
	// example: 3
	UnloadsTotal uint64 `json:"unloads_total" example:"3"`
	// example: 1
	WarmupsInProgress int `json:"warmups_in_progress" example:"1"`
	// example: 0
	DrainingCount int `json:"draining_count" example:"0"`
}
