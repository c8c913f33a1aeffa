package id

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// batchPrefix starts every settlement batch file name.
const batchPrefix = "DTAUS"

const batchTimeFormat = "20060102_150405"

// BatchFileName returns a settlement file name like "DTAUS20250103_101500_201.csv".
func BatchFileName(t time.Time, discriminator string) string {
	return fmt.Sprintf("%s%s_%s.csv", batchPrefix, t.Format(batchTimeFormat), discriminator)
}

// ParseBatchFileName parses a name produced by BatchFileName into its
// timestamp and discriminator.
func ParseBatchFileName(name string) (time.Time, string, error) {
	base, ok := strings.CutSuffix(name, ".csv")
	if !ok || !strings.HasPrefix(base, batchPrefix) {
		return time.Time{}, "", fmt.Errorf("invalid batch file name: %q", name)
	}
	base = strings.TrimPrefix(base, batchPrefix)

	if len(base) < len(batchTimeFormat)+2 || base[len(batchTimeFormat)] != '_' {
		return time.Time{}, "", fmt.Errorf("invalid batch file name: %q", name)
	}

	ts, err := time.Parse(batchTimeFormat, base[:len(batchTimeFormat)])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid timestamp in batch file name %q: %w", name, err)
	}
	return ts, base[len(batchTimeFormat)+1:], nil
}

// NewRunID returns a fresh identifier for one orchestrator run.
func NewRunID() string {
	return uuid.NewString()
}
