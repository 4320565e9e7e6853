package middleware

import "github.com/labstack/echo/v4"

const userIDKey = "user_id"

// UserID returns the authenticated user's id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	if s, ok := c.Get(userIDKey).(string); ok {
		return s
	}
	return ""
}

// rateSubject is the user part of rate-limit keys.
func rateSubject(c echo.Context) string {
	if uid := UserID(c); uid != "" {
		return uid
	}
	return "anon"
}
