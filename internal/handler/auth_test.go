package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecovend/recycle-server/internal/config"
	"github.com/ecovend/recycle-server/internal/repository"
	"github.com/ecovend/recycle-server/internal/utils"
)

var userCols = []string{
	"id", "rfid_id", "username", "pin_hash", "name", "student_id", "email",
	"login_attempts", "account_locked", "locked_until", "last_login",
}

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	cfg := config.Config{BcryptCost: bcrypt.MinCost, SessionTTLHours: 24}
	h := NewAuthHandler(cfg,
		repository.NewAccountRepo(db),
		repository.NewSessionRepo(db),
		repository.NewPointsRepo(db),
		zap.NewNop())
	return h, mock, func() { db.Close() }
}

func postJSON(t *testing.T, fn echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := fn(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func mustHash(t *testing.T, pin string) string {
	t.Helper()
	hash, err := utils.HashPIN(pin, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPIN: %v", err)
	}
	return hash
}

// Third consecutive failure must flip the account into the locked state
// with an unlock time roughly thirty minutes out.
func TestLoginThirdFailureLocks(t *testing.T) {
	h, mock, closeDB := newAuthHandler(t)
	defer closeDB()

	hash := mustHash(t, "1234")
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(
		sqlmock.NewRows(userCols).AddRow(7, "RFID1", "alice", hash, "Alice", "S1", nil, 2, false, nil, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET login_attempts = login_attempts + 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO login_attempts")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("account_locked=1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := postJSON(t, h.Login, `{"username":"alice","pin":"9999"}`)
	if rec.Code != http.StatusLocked {
		t.Fatalf("status = %d, want 423", rec.Code)
	}
	var resp struct {
		LockedUntil time.Time `json:"locked_until"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := time.Now().UTC().Add(30 * time.Minute)
	if d := resp.LockedUntil.Sub(want); d < -time.Minute || d > time.Minute {
		t.Fatalf("locked_until %v not within a minute of %v", resp.LockedUntil, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// A failure below the threshold reports invalid credentials and does not
// touch the lock columns.
func TestLoginFailureBelowThreshold(t *testing.T) {
	h, mock, closeDB := newAuthHandler(t)
	defer closeDB()

	hash := mustHash(t, "1234")
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(
		sqlmock.NewRows(userCols).AddRow(7, "RFID1", "alice", hash, "Alice", "S1", nil, 0, false, nil, nil))
	mock.ExpectExec(regexp.QuoteMeta("login_attempts + 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO login_attempts")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rec := postJSON(t, h.Login, `{"username":"alice","pin":"9999"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// While the lock is in force, the attempt must be rejected without
// consuming an attempt slot: no writes at all.
func TestLoginLockedAccountDoesNotCountAttempts(t *testing.T) {
	h, mock, closeDB := newAuthHandler(t)
	defer closeDB()

	hash := mustHash(t, "1234")
	until := time.Now().UTC().Add(10 * time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(
		sqlmock.NewRows(userCols).AddRow(7, "RFID1", "alice", hash, "Alice", "S1", nil, 3, true, until, nil))
	mock.ExpectRollback()

	rec := postJSON(t, h.Login, `{"username":"alice","pin":"1234"}`)
	if rec.Code != http.StatusLocked {
		t.Fatalf("status = %d, want 423", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// A correct PIN with an expired lock clears the counter, mints a session
// and returns a sanitized view without the hash or lockout columns.
func TestLoginSuccessResetsAndMintsSession(t *testing.T) {
	h, mock, closeDB := newAuthHandler(t)
	defer closeDB()

	hash := mustHash(t, "1234")
	expired := time.Now().UTC().Add(-time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(
		sqlmock.NewRows(userCols).AddRow(7, "RFID1", "alice", hash, "Alice", "S1", nil, 3, true, expired, nil))
	mock.ExpectExec(regexp.QuoteMeta("login_attempts=0")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO login_attempts")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_sessions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_points WHERE rfid_id=?")).
		WithArgs("RFID1").
		WillReturnRows(sqlmock.NewRows([]string{"rfid_id", "total_points", "total_bottles", "last_updated"}).
			AddRow("RFID1", 50, 5, time.Now()))

	rec := postJSON(t, h.Login, `{"username":"alice","pin":"1234"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		SessionToken string                 `json:"session_token"`
		ExpiresAt    time.Time              `json:"expires_at"`
		User         map[string]interface{} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.SessionToken) != 64 {
		t.Fatalf("token length = %d, want 64", len(resp.SessionToken))
	}
	for _, secret := range []string{"pin_hash", "login_attempts", "account_locked", "locked_until"} {
		if _, ok := resp.User[secret]; ok {
			t.Fatalf("sanitized view leaks %q", secret)
		}
	}
	if resp.User["total_points"].(float64) != 50 {
		t.Fatalf("total_points = %v, want 50", resp.User["total_points"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// Unknown usernames record an anonymous attempt row and report the same
// generic error as a wrong PIN.
func TestLoginUnknownUsername(t *testing.T) {
	h, mock, closeDB := newAuthHandler(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO login_attempts")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rec := postJSON(t, h.Login, `{"username":"ghost","pin":"1234"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestVerifySessionExpired(t *testing.T) {
	h, mock, closeDB := newAuthHandler(t)
	defer closeDB()

	// The expires_at > NOW() filter runs in SQL, so an expired row simply
	// produces no result.
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_sessions")).
		WillReturnError(sql.ErrNoRows)

	rec := postJSON(t, h.VerifySession, `{"session_token":"deadbeef"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// Logout acks whether or not the row still exists.
func TestLogoutIdempotent(t *testing.T) {
	h, mock, closeDB := newAuthHandler(t)
	defer closeDB()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_sessions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_sessions")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	for i := 0; i < 2; i++ {
		rec := postJSON(t, h.Logout, `{"session_token":"deadbeef"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("call %d: status = %d, want 200", i+1, rec.Code)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRegisterDuplicateRFID(t *testing.T) {
	h, mock, closeDB := newAuthHandler(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE rfid_id=?")).
		WithArgs("RFID1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	rec := postJSON(t, h.Register, `{"rfid":"RFID1","username":"alice","pin":"1234"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRegisterCreatesZeroedBalance(t *testing.T) {
	h, mock, closeDB := newAuthHandler(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE rfid_id=?")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE username=?")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_points (rfid_id, total_points, total_bottles) VALUES (?,0,0)")).
		WithArgs("RFID1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := postJSON(t, h.Register, `{"rfid":"RFID1","username":"alice","pin":"1234","name":"Alice","student_id":"S1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "pin") {
		t.Fatalf("register response leaks PIN material: %s", rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
