package hcloud

import (
	"time"

	"github.com/raoulx24/hcloud-snap-rotate/internal/snapshot"
)

type ServerStatus string

const (
	StatusInitializing ServerStatus = "initializing"
	StatusStarting     ServerStatus = "starting"
	StatusRunning      ServerStatus = "running"
	StatusStopping     ServerStatus = "stopping"
	StatusOff          ServerStatus = "off"
	StatusDeleting     ServerStatus = "deleting"
	StatusRebuilding   ServerStatus = "rebuilding"
	StatusMigrating    ServerStatus = "migrating"
	StatusUnknown      ServerStatus = "unknown"
)

// Up reports whether the server is running or on its way there.
func (s ServerStatus) Up() bool {
	return s == StatusRunning || s == StatusStarting
}

type Server struct {
	ID     int64             `json:"id"`
	Name   string            `json:"name"`
	Status ServerStatus      `json:"status"`
	Labels map[string]string `json:"labels"`
}

// ServerAction names a POST /servers/{id}/actions/{action} endpoint.
type ServerAction string

const (
	ActionPowerOn     ServerAction = "poweron"
	ActionPowerOff    ServerAction = "poweroff"
	ActionShutdown    ServerAction = "shutdown"
	ActionCreateImage ServerAction = "create_image"
)

type ActionStatus string

const (
	ActionRunning ActionStatus = "running"
	ActionSuccess ActionStatus = "success"
	ActionFailed  ActionStatus = "error"
)

type Action struct {
	ID       int64        `json:"id"`
	Command  string       `json:"command"`
	Status   ActionStatus `json:"status"`
	Progress int          `json:"progress"`
	Error    *ErrorBody   `json:"error"`
}

// Done reports whether the action finished, successfully or not.
func (a Action) Done() bool {
	return a.Status == ActionSuccess || a.Status == ActionFailed
}

type Image struct {
	ID          int64        `json:"id"`
	Type        string       `json:"type"`
	Description string       `json:"description"`
	Created     time.Time    `json:"created"`
	CreatedFrom *ImageSource `json:"created_from"`
	Protection  struct {
		Delete bool `json:"delete"`
	} `json:"protection"`
}

// ImageSource is the server an image was created from.
type ImageSource struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Snapshot converts the image to the rotation model. Images that were not
// created from a server have zero ServerID.
func (i Image) Snapshot() *snapshot.Snapshot {
	s := &snapshot.Snapshot{
		ID:          i.ID,
		Description: i.Description,
		Created:     i.Created,
		Protected:   i.Protection.Delete,
	}
	if i.CreatedFrom != nil {
		s.ServerID = i.CreatedFrom.ID
		s.ServerName = i.CreatedFrom.Name
	}
	return s
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type meta struct {
	Pagination struct {
		Page     int  `json:"page"`
		NextPage *int `json:"next_page"`
	} `json:"pagination"`
}
