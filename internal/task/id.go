// Package task generates conversation identifiers and derives the on-disk
// date partition from them.
package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const timestampLayout = "20060102_150405"

// NewID returns a fresh task identifier: a second-resolution timestamp plus
// an 8-character random suffix, e.g. "20250117_153042_a1b2c3d4". The
// timestamp alone does not guarantee uniqueness within a second; the random
// suffix does. The timestamp component is reused verbatim to compute the
// date partition a conversation is stored under.
func NewID() string {
	suffix := uuid.New().String()[:8]
	return time.Now().Format(timestampLayout) + "_" + suffix
}

// DatePartition extracts the YYYY-MM-DD directory name from a task id's
// timestamp component.
func DatePartition(id string) (string, error) {
	date, _, found := strings.Cut(id, "_")
	if !found || len(date) != 8 {
		return "", fmt.Errorf("task id %q has no valid timestamp component", id)
	}
	return date[:4] + "-" + date[4:6] + "-" + date[6:8], nil
}
