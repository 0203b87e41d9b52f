package request

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func asUser(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	}
}

func newApp(svc *Service, userID string) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/requests"), svc, asUser(userID))
	return app
}

func TestSubmitHandler(t *testing.T) {
	fixedNow(t, "2030-01-01")
	mock := newMock(t)

	mock.ExpectBegin()
	expectRideLock(mock, "ride-1", "host-1", 2, []string{}, "active", "2030-01-02")
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM rides`).
		WithArgs("user-2", "2030-01-01").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM join_requests`).
		WithArgs("ride-1", "user-2").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT username, email FROM users`).
		WithArgs("user-2").
		WillReturnRows(pgxmock.NewRows([]string{"username", "email"}).AddRow("Ravi", "ravi@campus.edu"))
	mock.ExpectQuery(`INSERT INTO join_requests`).
		WithArgs(pgxmock.AnyArg(), "ride-1", "user-2", "Ravi", "ravi@campus.edu", "host-1").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	app := newApp(NewService(mock, nil, nil), "user-2")
	body, _ := json.Marshal(map[string]string{"ride_id": "ride-1"})
	req := httptest.NewRequest("POST", "/requests/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var got JoinRequest
	data, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if got.Status != StatusPending || got.RideID != "ride-1" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestSubmitHandlerMissingRideID(t *testing.T) {
	app := newApp(NewService(newMock(t), nil, nil), "user-2")
	req := httptest.NewRequest("POST", "/requests/", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSubmitHandlerFullRideConflict(t *testing.T) {
	fixedNow(t, "2030-01-01")
	mock := newMock(t)

	mock.ExpectBegin()
	expectRideLock(mock, "ride-1", "host-1", 1, []string{"a"}, "active", "2030-01-02")
	mock.ExpectRollback()

	app := newApp(NewService(mock, nil, nil), "user-2")
	body, _ := json.Marshal(map[string]string{"ride_id": "ride-1"})
	req := httptest.NewRequest("POST", "/requests/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestAcceptHandler(t *testing.T) {
	mock := newMock(t)
	expectAcceptTx(mock, "req-1", "ride-1", "user-2", 2, []string{})

	app := newApp(NewService(mock, nil, nil), "host-1")
	resp, err := app.Test(httptest.NewRequest("POST", "/requests/req-1/accept", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}

func TestAcceptHandlerForbidden(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT ride_id, user_id, host_id, status FROM join_requests`).
		WithArgs("req-1").
		WillReturnRows(pgxmock.NewRows([]string{"ride_id", "user_id", "host_id", "status"}).
			AddRow("ride-1", "user-2", "host-1", StatusPending))
	mock.ExpectRollback()

	app := newApp(NewService(mock, nil, nil), "intruder")
	resp, err := app.Test(httptest.NewRequest("POST", "/requests/req-1/accept", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestRejectHandler(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT ride_id, user_id, host_id FROM join_requests`).
		WithArgs("req-1").
		WillReturnRows(pgxmock.NewRows([]string{"ride_id", "user_id", "host_id"}).
			AddRow("ride-1", "user-2", "host-1"))
	mock.ExpectExec(`UPDATE join_requests SET status='rejected' WHERE id=`).
		WithArgs("req-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	app := newApp(NewService(mock, nil, nil), "host-1")
	resp, err := app.Test(httptest.NewRequest("POST", "/requests/req-1/reject", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}

func TestRejectHandlerNotFound(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT ride_id, user_id, host_id FROM join_requests`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"ride_id", "user_id", "host_id"}))

	app := newApp(NewService(mock, nil, nil), "host-1")
	resp, err := app.Test(httptest.NewRequest("POST", "/requests/missing/reject", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestMineHandler(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`WHERE user_id=\$1`).
		WithArgs("user-2").
		WillReturnRows(requestRows("req-1", "ride-1", "user-2", StatusAccepted))

	app := newApp(NewService(mock, nil, nil), "user-2")
	resp, err := app.Test(httptest.NewRequest("GET", "/requests/mine", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got []JoinRequest
	data, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(got) != 1 || got[0].ID != "req-1" {
		t.Fatalf("unexpected list %+v", got)
	}
}

func TestMineHandlerEmptyList(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`WHERE user_id=\$1`).
		WithArgs("user-2").
		WillReturnRows(pgxmock.NewRows([]string{"id", "ride_id", "user_id", "user_name", "user_email", "host_id", "status", "created_at"}))

	app := newApp(NewService(mock, nil, nil), "user-2")
	resp, err := app.Test(httptest.NewRequest("GET", "/requests/mine", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	data, _ := io.ReadAll(resp.Body)
	if string(data) != "[]" {
		t.Fatalf("expected empty array, got %s", data)
	}
}

func TestInboxHandler(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`WHERE ride_id=\$1 AND host_id=\$2 AND status='pending'`).
		WithArgs("ride-1", "host-1").
		WillReturnRows(requestRows("req-1", "ride-1", "user-2", StatusPending))

	app := newApp(NewService(mock, nil, nil), "host-1")
	resp, err := app.Test(httptest.NewRequest("GET", "/requests/ride/ride-1", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
