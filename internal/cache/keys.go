package cache

import (
	"fmt"
	"time"

	"agora/internal/models"
)

const (
	tallyKeyFormat = "tally:%s:%d"

	// DefaultTallyTTL applies when no TTL is configured.
	DefaultTallyTTL = time.Minute
)

// TallyKey is the cache key of a target's vote tally.
func TallyKey(targetType models.TargetType, targetID uint) string {
	return fmt.Sprintf(tallyKeyFormat, targetType, targetID)
}
