package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ecovend/recycle-server/internal/model"
	"github.com/ecovend/recycle-server/internal/repository"
)

// accountKey is the context key under which SessionAuth stores the
// authenticated account view.
const accountKey = "account"

// SessionAuth returns an Echo middleware that validates a Bearer session
// token against the user_sessions table and injects the owner's sanitized
// account view into the request context.  Tokens are opaque: validity is
// decided entirely by the store, so logout takes effect immediately and
// expiry needs no clock handling here.  Handlers read the resulting
// identity through CurrentAccount instead of re-parsing the header.
func SessionAuth(sessions *repository.SessionRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			token := strings.TrimPrefix(auth, "Bearer ")

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			view, err := sessions.Verify(ctx, token)
			if err == sql.ErrNoRows {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired session"})
			}
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session lookup failed"})
			}
			c.Set(accountKey, view)
			return next(c)
		}
	}
}

// CurrentAccount returns the account view stored by SessionAuth.  The
// second return is false when the route was not wrapped by SessionAuth.
func CurrentAccount(c echo.Context) (model.AccountView, bool) {
	v, ok := c.Get(accountKey).(model.AccountView)
	return v, ok
}
