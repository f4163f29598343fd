package sandbox

import "time"

// Status represents the lifecycle state of a sandbox.
type Status string

const (
	StatusActive    Status = "active"
	StatusDestroyed Status = "destroyed"
)

// Sandbox is a live remote sandbox tracked under a caller-chosen name.
// RemoteID and BaseURL are fixed at provisioning time; only Status changes
// afterwards.
type Sandbox struct {
	Name      string    `json:"name"`
	RemoteID  string    `json:"remote_id"`
	BaseURL   string    `json:"base_url"`
	CreatedAt time.Time `json:"created_at"`
	Status    Status    `json:"status"`
}
