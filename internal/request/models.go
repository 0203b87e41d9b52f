package request

import "time"

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// JoinRequest is a prospective passenger's ask to join a ride. Status
// moves pending -> accepted or pending -> rejected, both terminal.
type JoinRequest struct {
	ID        string    `json:"id"`
	RideID    string    `json:"ride_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
	HostID    string    `json:"host_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Event struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	RideID    string `json:"ride_id"`
	UserID    string `json:"user_id"`
}
