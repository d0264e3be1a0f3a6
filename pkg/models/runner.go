package models

const (
	RunnerStatusOnline  = "online"
	RunnerStatusOffline = "offline"
)

// Runner is the typed record for a registered runner, built at the
// collector boundary from the queue provider's response.
type Runner struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Busy   bool   `json:"busy"`
}

func (r Runner) Online() bool {
	return r.Status == RunnerStatusOnline
}

// Dead reports whether the runner registration can be deleted safely:
// it is offline and not executing a job.
func (r Runner) Dead() bool {
	return r.Status == RunnerStatusOffline && !r.Busy
}
