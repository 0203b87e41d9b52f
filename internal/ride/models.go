package ride

import "time"

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const MaxSeats = 6

type Ride struct {
	ID          string    `json:"id"`
	HostID      string    `json:"host_id"`
	HostName    string    `json:"host_name"`
	HostEmail   string    `json:"host_email,omitempty"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Time        string    `json:"time"` // HH:MM
	Seats       int       `json:"seats"`
	Contact     string    `json:"contact,omitempty"`
	Passengers  []string  `json:"passengers"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Event is broadcast over the stream hub and the AMQP exchange after a
// successful mutation. Clients treat it as an invalidation signal and
// re-fetch their snapshot.
type Event struct {
	Type   string `json:"type"`
	RideID string `json:"ride_id"`
	UserID string `json:"user_id,omitempty"`
}

func (r Ride) SeatsLeft() int {
	return r.Seats - len(r.Passengers)
}

func (r Ride) IsHost(userID string) bool {
	return r.HostID == userID
}

func (r Ride) IsPassenger(userID string) bool {
	for _, p := range r.Passengers {
		if p == userID {
			return true
		}
	}
	return false
}

// Expired reports whether the ride's date is strictly before today.
// Dates are YYYY-MM-DD so plain string comparison orders them.
func (r Ride) Expired(today string) bool {
	return r.Date < today
}

// View redacts contact details for viewers who are neither host nor
// passenger. The underlying record stays intact.
func (r Ride) View(viewerID string) Ride {
	if r.IsHost(viewerID) || r.IsPassenger(viewerID) {
		return r
	}
	r.Contact = ""
	r.HostEmail = ""
	return r
}
