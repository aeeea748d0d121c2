// internal/routing/quiet.go
package routing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"notify-engine/internal/common/errors"
	"notify-engine/internal/models"
)

// minuteOfDay converts an "HH:mm" wall-clock string to minutes since
// midnight.
func minuteOfDay(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("malformed hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed minute in %q", s)
	}
	return h*60 + m, nil
}

// IsSuppressed reports whether now falls inside the half-open quiet window
// [start, end). A window whose start equals its end is empty. A window whose
// start is after its end wraps past midnight.
func IsSuppressed(qh *models.QuietHours, now time.Time) bool {
	if qh == nil {
		return false
	}
	start, err := minuteOfDay(qh.Start)
	if err != nil {
		return false
	}
	end, err := minuteOfDay(qh.End)
	if err != nil {
		return false
	}
	if start == end {
		return false
	}

	cur := now.Hour()*60 + now.Minute()
	if start < end {
		return cur >= start && cur < end
	}
	return cur >= start || cur < end
}

// ValidateQuietHours rejects windows whose endpoints do not parse as HH:mm.
func ValidateQuietHours(qh *models.QuietHours) error {
	if qh == nil {
		return nil
	}
	if _, err := minuteOfDay(qh.Start); err != nil {
		return errors.NewBadRequestError("Invalid quiet hours start", err.Error())
	}
	if _, err := minuteOfDay(qh.End); err != nil {
		return errors.NewBadRequestError("Invalid quiet hours end", err.Error())
	}
	return nil
}
