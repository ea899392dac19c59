package middleware

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/ecovend/recycle-server/internal/repository"
)

var sessionCols = []string{
	"id", "rfid_id", "username", "name", "student_id", "email", "last_login",
	"total_points", "total_bottles",
}

func runSessionAuth(t *testing.T, sessions *repository.SessionRepo, authHeader string, next echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := SessionAuth(sessions)(next)(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec
}

func TestSessionAuthMissingHeader(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	called := false
	rec := runSessionAuth(t, repository.NewSessionRepo(db), "", func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if called {
		t.Fatal("next handler ran without a bearer token")
	}
	// No token means no lookup either.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSessionAuthRejectsBasicScheme(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rec := runSessionAuth(t, repository.NewSessionRepo(db), "Basic dXNlcjpwYXNz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSessionAuthValidTokenExposesAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM user_sessions")).
		WithArgs("deadbeef").
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow(7, "RFID1", "alice", "Alice", "S1", nil, time.Now(), 50, 5))

	rec := runSessionAuth(t, repository.NewSessionRepo(db), "Bearer deadbeef", func(c echo.Context) error {
		view, ok := CurrentAccount(c)
		if !ok {
			t.Fatal("CurrentAccount not set for authenticated request")
		}
		if view.Username != "alice" || view.TotalPoints != 50 {
			t.Fatalf("unexpected view: %+v", view)
		}
		return c.NoContent(http.StatusOK)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSessionAuthExpiredToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	// Expired rows are filtered in SQL, so the lookup comes back empty.
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_sessions")).
		WithArgs("stale").
		WillReturnRows(sqlmock.NewRows(sessionCols))

	rec := runSessionAuth(t, repository.NewSessionRepo(db), "Bearer stale", func(c echo.Context) error {
		t.Fatal("next handler ran with an expired token")
		return nil
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCurrentAccountUnsetOutsideAuth(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if _, ok := CurrentAccount(c); ok {
		t.Fatal("CurrentAccount reported an identity on a bare context")
	}
}
