package persister

// Stats is a point-in-time snapshot of pipeline counters, safe to read
// while the flush loop runs. Counters reset only when a new Supervisor
// is constructed.
type Stats struct {
	State string `json:"state"`

	QueueDepth    int   `json:"queue_depth"`
	QueueCapacity int   `json:"queue_capacity"`
	TotalEnqueued int64 `json:"total_enqueued"`

	// TotalRejected counts capacity-based enqueue rejections.
	TotalRejected int64 `json:"total_rejected"`

	// TotalPersisted counts ticks delivered to the sink; TotalConflicts
	// is the subset skipped as already-present duplicates.
	TotalPersisted int64 `json:"total_persisted"`
	TotalConflicts int64 `json:"total_conflicts"`

	// TotalDropped counts ticks discarded after a batch terminally failed
	// or the drain timeout elapsed.
	TotalDropped int64 `json:"total_dropped"`

	TotalBatches        int64  `json:"total_batches"`
	LastBatchDurationMS int64  `json:"last_batch_duration_ms"`
	LastBatchID         string `json:"last_batch_id,omitempty"`
	LastError           string `json:"last_error,omitempty"`
}
