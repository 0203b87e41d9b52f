package request

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
	ErrNotFound         = errors.New("request not found")
	ErrRideNotFound     = errors.New("ride not found")
	ErrRideClosed       = errors.New("ride is no longer active")
	ErrRideExpired      = errors.New("ride date has passed")
	ErrRideFull         = errors.New("no seats left")
	ErrOwnRide          = errors.New("cannot request to join your own ride")
	ErrAlreadyPassenger = errors.New("already a passenger of this ride")
	ErrBusy             = errors.New("already hosting or riding on an active ride")
	ErrDuplicate        = errors.New("a request for this ride is already open")
	ErrNotHost          = errors.New("only the host may do this")
	ErrNotPending       = errors.New("request already settled")
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

// Submit files a pending join request for userID against rideID. The
// ride row is locked for the duration so the seat check and the insert
// cannot interleave with a concurrent accept. Eligibility rules: the
// ride must be active, unexpired and have seats left; the requester must
// not be its host or a passenger already, must not be busy with another
// active ride, and may hold at most one non-rejected request per ride.
func (s *Service) Submit(ctx context.Context, rideID, userID string) (JoinRequest, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return JoinRequest{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		hostID     string
		seats      int
		passengers []string
		status     string
		date       string
	)
	err = tx.QueryRow(ctx, `
		SELECT host_id, seats, passengers, status, date FROM rides WHERE id=$1 FOR UPDATE
	`, rideID).Scan(&hostID, &seats, &passengers, &status, &date)
	if errors.Is(err, pgx.ErrNoRows) {
		return JoinRequest{}, ErrRideNotFound
	}
	if err != nil {
		return JoinRequest{}, err
	}

	switch {
	case status != "active":
		return JoinRequest{}, ErrRideClosed
	case date < today():
		return JoinRequest{}, ErrRideExpired
	case hostID == userID:
		return JoinRequest{}, ErrOwnRide
	case contains(passengers, userID):
		return JoinRequest{}, ErrAlreadyPassenger
	case seats-len(passengers) <= 0:
		return JoinRequest{}, ErrRideFull
	}

	var busy int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM rides
		WHERE status='active' AND date >= $2 AND (host_id = $1 OR $1 = ANY(passengers))
	`, userID, today()).Scan(&busy)
	if err != nil {
		return JoinRequest{}, err
	}
	if busy > 0 {
		return JoinRequest{}, ErrBusy
	}

	var open int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM join_requests
		WHERE ride_id=$1 AND user_id=$2 AND status <> 'rejected'
	`, rideID, userID).Scan(&open)
	if err != nil {
		return JoinRequest{}, err
	}
	if open > 0 {
		return JoinRequest{}, ErrDuplicate
	}

	req := JoinRequest{
		ID:     uuid.NewString(),
		RideID: rideID,
		UserID: userID,
		HostID: hostID,
		Status: StatusPending,
	}
	if err := tx.QueryRow(ctx, `SELECT username, email FROM users WHERE id=$1`, userID).
		Scan(&req.UserName, &req.UserEmail); err != nil {
		return JoinRequest{}, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO join_requests (id, ride_id, user_id, user_name, user_email, host_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, req.ID, req.RideID, req.UserID, req.UserName, req.UserEmail, req.HostID).Scan(&req.CreatedAt)
	if err != nil {
		return JoinRequest{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return JoinRequest{}, err
	}

	s.notify(Event{Type: "request.submitted", RequestID: req.ID, RideID: rideID, UserID: userID},
		stream.RideTopic(rideID), stream.UserTopic(hostID))
	return req, nil
}

// Accept flips a pending request to accepted and appends the requester to
// the ride's passenger list in a single transaction: either both rows
// change or neither does. Seats are re-checked under the ride row lock.
func (s *Service) Accept(ctx context.Context, requestID, hostID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		rideID   string
		userID   string
		reqHost  string
		reqState string
	)
	err = tx.QueryRow(ctx, `
		SELECT ride_id, user_id, host_id, status FROM join_requests WHERE id=$1 FOR UPDATE
	`, requestID).Scan(&rideID, &userID, &reqHost, &reqState)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if reqHost != hostID {
		return ErrNotHost
	}
	if reqState != StatusPending {
		return ErrNotPending
	}

	var (
		seats      int
		passengers []string
		status     string
	)
	err = tx.QueryRow(ctx, `
		SELECT seats, passengers, status FROM rides WHERE id=$1 FOR UPDATE
	`, rideID).Scan(&seats, &passengers, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRideNotFound
	}
	if err != nil {
		return err
	}
	if status != "active" {
		return ErrRideClosed
	}
	if seats-len(passengers) <= 0 {
		return ErrRideFull
	}

	if _, err := tx.Exec(ctx, `
		UPDATE join_requests SET status='accepted' WHERE id=$1
	`, requestID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE rides SET passengers = array_append(passengers, $2)
		WHERE id=$1 AND NOT ($2 = ANY(passengers))
	`, rideID, userID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.notify(Event{Type: "request.accepted", RequestID: requestID, RideID: rideID, UserID: userID},
		stream.TopicExplore, stream.RideTopic(rideID), stream.UserTopic(userID))
	return nil
}

// Reject settles a pending request. There is no reactivation path.
func (s *Service) Reject(ctx context.Context, requestID, hostID string) error {
	var (
		rideID  string
		userID  string
		reqHost string
	)
	err := s.db.QueryRow(ctx, `
		SELECT ride_id, user_id, host_id FROM join_requests WHERE id=$1
	`, requestID).Scan(&rideID, &userID, &reqHost)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if reqHost != hostID {
		return ErrNotHost
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE join_requests SET status='rejected' WHERE id=$1 AND status='pending'
	`, requestID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}

	s.notify(Event{Type: "request.rejected", RequestID: requestID, RideID: rideID, UserID: userID},
		stream.RideTopic(rideID), stream.UserTopic(userID))
	return nil
}

const requestColumns = `id, ride_id, user_id, user_name, user_email, host_id, status, created_at`

// Inbox lists the pending requests for a ride the caller hosts.
func (s *Service) Inbox(ctx context.Context, rideID, hostID string) ([]JoinRequest, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+requestColumns+`
		FROM join_requests
		WHERE ride_id=$1 AND host_id=$2 AND status='pending'
		ORDER BY created_at
	`, rideID, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

// Mine lists the caller's own requests, newest first.
func (s *Service) Mine(ctx context.Context, userID string) ([]JoinRequest, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+requestColumns+`
		FROM join_requests
		WHERE user_id=$1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func scanRequests(rows pgx.Rows) ([]JoinRequest, error) {
	var reqs []JoinRequest
	for rows.Next() {
		var r JoinRequest
		if err := rows.Scan(&r.ID, &r.RideID, &r.UserID, &r.UserName, &r.UserEmail, &r.HostID, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
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
