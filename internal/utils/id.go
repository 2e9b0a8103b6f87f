package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a short random identifier with the given prefix, e.g. "conn-1f2e3d4c5b6a".
func NewID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
