package middleware

// identity.go holds helpers shared across middleware files for reading the
// authenticated subject.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// subjectID converts a decoded "sub" claim to an id.  JSON numbers decode as
// float64; some issuers encode the id as a numeric string.
func subjectID(v any) (uint64, bool) {
	switch s := v.(type) {
	case float64:
		if s <= 0 || s != float64(uint64(s)) {
			return 0, false
		}
		return uint64(s), true
	case string:
		id, err := strconv.ParseUint(s, 10, 64)
		return id, err == nil && id > 0
	}
	return 0, false
}

// userID returns the authenticated subject as a string for use in keys, or
// "guest" when the request is anonymous.
func userID(c echo.Context) string {
	if id, ok := c.Get("user_id").(uint64); ok && id > 0 {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
