package agent

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusRunning       Status = "running"
	StatusPaused        Status = "paused"
	StatusCompleted     Status = "completed"
	StatusIgnored       Status = "ignored"
	StatusNotified      Status = "notified"
	StatusMaxIterations Status = "max_iterations"
	StatusAbandoned     Status = "abandoned"
	StatusFailed        Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusRunning, StatusPaused:
		return false
	}
	return true
}

func (s Status) String() string {
	return string(s)
}
