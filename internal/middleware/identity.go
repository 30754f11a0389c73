package middleware

// identity.go holds the context keys JWTAuth fills and the accessors the
// rest of the HTTP layer reads them through.

import "github.com/labstack/echo/v4"

const (
    ctxUserID    = "user_id"
    ctxRole      = "role"
    ctxRequestID = "request_id"
)

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c echo.Context) string {
    if v, ok := c.Get(ctxUserID).(string); ok {
        return v
    }
    return ""
}

// Role returns the role claim of the access token, or "".
func Role(c echo.Context) string {
    if v, ok := c.Get(ctxRole).(string); ok {
        return v
    }
    return ""
}

// RequestIDOf returns the id assigned by RequestID.
func RequestIDOf(c echo.Context) string {
    if v, ok := c.Get(ctxRequestID).(string); ok {
        return v
    }
    return ""
}

// rateSubject is the user part of a rate limit key.
func rateSubject(c echo.Context) string {
    if id := UserID(c); id != "" {
        return id
    }
    return "anon"
}
