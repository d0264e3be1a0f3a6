package models

import "time"

// Snapshot is the normalized view of queue and fleet state collected once
// per polling cycle. It is rebuilt every cycle and never retained.
type Snapshot struct {
	Timestamp        time.Time `json:"timestamp"`
	QueuedJobs       int       `json:"queued_jobs"`
	OnlineRunners    int       `json:"online_runners"`
	IdleRunners      int       `json:"idle_runners"`
	CurrentInstances int       `json:"current_instances"`
}
