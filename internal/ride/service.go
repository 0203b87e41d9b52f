package ride

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/SilentFURY-x/RideAlong/internal/db"
	"github.com/SilentFURY-x/RideAlong/internal/events"
	"github.com/SilentFURY-x/RideAlong/internal/stream"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound     = errors.New("ride not found")
	ErrNotHost      = errors.New("only the host may do this")
	ErrNotPassenger = errors.New("not a passenger of this ride")
)

var nowFn = time.Now

func today() string {
	return nowFn().Format("2006-01-02")
}

type Service struct {
	db  db.Querier
	hub *stream.Hub
	pub *events.Publisher
}

func NewService(db db.Querier, hub *stream.Hub, pub *events.Publisher) *Service {
	return &Service{db: db, hub: hub, pub: pub}
}

const rideColumns = `id, host_id, host_name, host_email, source, destination, date, time, seats, contact, passengers, status, created_at`

func scanRide(row pgx.Row) (Ride, error) {
	var r Ride
	err := row.Scan(&r.ID, &r.HostID, &r.HostName, &r.HostEmail, &r.Source, &r.Destination,
		&r.Date, &r.Time, &r.Seats, &r.Contact, &r.Passengers, &r.Status, &r.CreatedAt)
	return r, err
}

// Create inserts a new active ride hosted by input.HostID. The host's
// name and email are snapshotted from the users table at creation time.
func (s *Service) Create(ctx context.Context, input Ride) (Ride, error) {
	row := s.db.QueryRow(ctx, `SELECT username, email FROM users WHERE id=$1`, input.HostID)
	if err := row.Scan(&input.HostName, &input.HostEmail); err != nil {
		return Ride{}, err
	}

	input.ID = uuid.NewString()
	input.Passengers = []string{}
	input.Status = StatusActive

	row = s.db.QueryRow(ctx, `
		INSERT INTO rides (id, host_id, host_name, host_email, source, destination, date, time, seats, contact)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at
	`, input.ID, input.HostID, input.HostName, input.HostEmail, input.Source, input.Destination,
		input.Date, input.Time, input.Seats, input.Contact)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Ride{}, err
	}

	s.notify(Event{Type: "ride.created", RideID: input.ID}, stream.TopicExplore)
	return input, nil
}

func (s *Service) Get(ctx context.Context, id string) (Ride, error) {
	row := s.db.QueryRow(ctx, `SELECT `+rideColumns+` FROM rides WHERE id=$1`, id)
	ride, err := scanRide(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ride{}, ErrNotFound
	}
	if err != nil {
		return Ride{}, err
	}
	return ride, nil
}

// ActiveRide resolves the one unexpired active ride userID hosts or rides
// on. Expiry is derived here from the date column; nothing is mutated on
// the read path.
func (s *Service) ActiveRide(ctx context.Context, userID string) (Ride, bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+rideColumns+`
		FROM rides
		WHERE status='active' AND date >= $2 AND (host_id = $1 OR $1 = ANY(passengers))
		ORDER BY date, time
		LIMIT 1
	`, userID, today())
	ride, err := scanRide(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ride{}, false, nil
	}
	if err != nil {
		return Ride{}, false, err
	}
	return ride, true, nil
}

type Filters struct {
	Search      string // matches source or destination
	Date        string // exact YYYY-MM-DD, empty for any
	ExcludeHost string // hide this user's own hosted rides
}

// List returns active unexpired rides soonest first, per the explore view.
func (s *Service) List(ctx context.Context, f Filters) ([]Ride, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+rideColumns+`
		FROM rides
		WHERE status='active' AND date >= $1
		  AND ($2 = '' OR source ILIKE '%'||$2||'%' OR destination ILIKE '%'||$2||'%')
		  AND ($3 = '' OR date = $3)
		  AND ($4 = '' OR host_id <> $4)
		ORDER BY date, time
	`, today(), f.Search, f.Date, f.ExcludeHost)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, r)
	}
	return rides, rows.Err()
}

// Cancel deletes a hosted ride and cascade-rejects its pending requests
// in one transaction, so no request is left pending against a ride that
// no longer exists.
func (s *Service) Cancel(ctx context.Context, rideID, hostID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var dbHost string
	err = tx.QueryRow(ctx, `SELECT host_id FROM rides WHERE id=$1 FOR UPDATE`, rideID).Scan(&dbHost)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if dbHost != hostID {
		return ErrNotHost
	}

	if _, err := tx.Exec(ctx, `
		UPDATE join_requests SET status='rejected' WHERE ride_id=$1 AND status='pending'
	`, rideID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM rides WHERE id=$1`, rideID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.notify(Event{Type: "ride.cancelled", RideID: rideID}, stream.TopicExplore, stream.RideTopic(rideID))
	return nil
}

// Leave removes userID from the passenger list; the ride itself persists.
// The passenger's accepted request is rolled back to rejected so the seat
// accounting and the request inbox stay consistent.
func (s *Service) Leave(ctx context.Context, rideID, userID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var passengers []string
	err = tx.QueryRow(ctx, `SELECT passengers FROM rides WHERE id=$1 FOR UPDATE`, rideID).Scan(&passengers)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !contains(passengers, userID) {
		return ErrNotPassenger
	}

	if err := removePassengerTx(ctx, tx, rideID, userID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.notify(Event{Type: "ride.passenger_left", RideID: rideID, UserID: userID},
		stream.RideTopic(rideID), stream.UserTopic(userID))
	return nil
}

// RemovePassenger is the host-side counterpart of Leave.
func (s *Service) RemovePassenger(ctx context.Context, rideID, hostID, passengerID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var dbHost string
	var passengers []string
	err = tx.QueryRow(ctx, `SELECT host_id, passengers FROM rides WHERE id=$1 FOR UPDATE`, rideID).
		Scan(&dbHost, &passengers)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if dbHost != hostID {
		return ErrNotHost
	}
	if !contains(passengers, passengerID) {
		return ErrNotPassenger
	}

	if err := removePassengerTx(ctx, tx, rideID, passengerID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.notify(Event{Type: "ride.passenger_removed", RideID: rideID, UserID: passengerID},
		stream.RideTopic(rideID), stream.UserTopic(passengerID))
	return nil
}

func removePassengerTx(ctx context.Context, tx pgx.Tx, rideID, userID string) error {
	if _, err := tx.Exec(ctx, `
		UPDATE rides SET passengers = array_remove(passengers, $2) WHERE id=$1
	`, rideID, userID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
		UPDATE join_requests SET status='rejected' WHERE ride_id=$1 AND user_id=$2 AND status='accepted'
	`, rideID, userID)
	return err
}

func (s *Service) notify(event Event, topics ...string) {
	payload, _ := json.Marshal(event)
	if s.hub != nil {
		for _, topic := range topics {
			s.hub.Broadcast(topic, payload)
		}
	}
	if err := s.pub.Publish(context.Background(), event.Type, payload); err != nil {
		log.Printf("amqp publish error: %v", err)
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
