package models

import "time"

// UpdateStatus represents the state of an update run.
type UpdateStatus string

const (
	// UpdateRunning indicates the update trigger is in flight.
	UpdateRunning UpdateStatus = "running"
	// UpdateSuccess indicates the host accepted the update and the build was re-resolved.
	UpdateSuccess UpdateStatus = "success"
	// UpdateFailed indicates the update chain failed for this application.
	UpdateFailed UpdateStatus = "failed"
)

// UpdateRun is the audit record of one update trigger within the session.
type UpdateRun struct {
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  *time.Time   `json:"finished_at"`
	ID          string       `json:"id"`
	HostName    string       `json:"host_name"`
	AppName     string       `json:"app_name"`
	ProjectID   string       `json:"project_id"`
	Status      UpdateStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	RequestedBy string       `json:"requested_by"`
}

// EventType names a registry event.
type EventType string

const (
	// EventAppChanged is published whenever an application record changes.
	EventAppChanged EventType = "app.changed"
	// EventUpdateStarted is published when an update chain reaches an application.
	EventUpdateStarted EventType = "update.started"
	// EventUpdateFinished is published when an application's update completes or fails.
	EventUpdateFinished EventType = "update.finished"
)

// AppEvent is broadcast to event stream subscribers.
type AppEvent struct {
	At   time.Time `json:"at"`
	App  *App      `json:"app,omitempty"`
	Type EventType `json:"type"`
	Key  AppKey    `json:"key"`
}
