package domain

import (
	"fmt"
	"regexp"
	"time"
)

// MaxDailyTrackingSeq is the largest sequence that fits the five digit suffix.
const MaxDailyTrackingSeq = 99999

var trackingCodePattern = regexp.MustCompile(`^DON-\d{8}-\d{5}$`)

// ErrTrackingExhausted is returned once a day has used every tracking number.
var ErrTrackingExhausted = fmt.Errorf("%w: no tracking codes left for today", ErrInvalidState)

// FormatTrackingCode renders the human readable donation code for the given day sequence.
func FormatTrackingCode(day time.Time, seq int64) (string, error) {
	if seq < 1 || seq > MaxDailyTrackingSeq {
		return "", ErrTrackingExhausted
	}
	return fmt.Sprintf("DON-%s-%05d", day.UTC().Format("20060102"), seq), nil
}

// ValidTrackingCode reports whether code has the DON-YYYYMMDD-NNNNN shape.
func ValidTrackingCode(code string) bool {
	if !trackingCodePattern.MatchString(code) {
		return false
	}
	_, err := time.Parse("20060102", code[4:12])
	return err == nil
}
