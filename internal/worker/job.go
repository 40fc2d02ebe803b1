package worker

import "time"

// Trigger is what caused a pass.
type Trigger string

const (
	TriggerStartup  Trigger = "startup"
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// Job asks the worker for one pass over all servers.
type Job struct {
	Trigger Trigger
	At      time.Time
}
