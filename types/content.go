package types

import (
	"time"
)

// ContentType classifies how fast a piece of cached travel data goes stale.
// Temporal types carry a default TTL; structural types are serialization
// hints only and never resolve to a TTL on their own.
type ContentType string

const (
	ContentRealtime      ContentType = "realtime"
	ContentTimeSensitive ContentType = "time_sensitive"
	ContentDaily         ContentType = "daily"
	ContentSemiStatic    ContentType = "semi_static"
	ContentStatic        ContentType = "static"

	ContentJSON     ContentType = "json"
	ContentMarkdown ContentType = "markdown"
	ContentHTML     ContentType = "html"
	ContentBinary   ContentType = "binary"
)

const (
	TTLRealtime      = 90 * time.Second
	TTLTimeSensitive = 5 * time.Minute
	TTLDaily         = time.Hour
	TTLSemiStatic    = 8 * time.Hour
	TTLStatic        = 24 * time.Hour
)

func (ct ContentType) DefaultTTL() time.Duration {
	switch ct {
	case ContentRealtime:
		return TTLRealtime
	case ContentTimeSensitive:
		return TTLTimeSensitive
	case ContentDaily:
		return TTLDaily
	case ContentSemiStatic:
		return TTLSemiStatic
	case ContentStatic:
		return TTLStatic
	default:
		return 0
	}
}

// Temporal reports whether the type participates in TTL resolution.
func (ct ContentType) Temporal() bool {
	switch ct {
	case ContentRealtime, ContentTimeSensitive, ContentDaily, ContentSemiStatic, ContentStatic:
		return true
	default:
		return false
	}
}

func (ct ContentType) Valid() bool {
	switch ct {
	case ContentRealtime, ContentTimeSensitive, ContentDaily, ContentSemiStatic, ContentStatic,
		ContentJSON, ContentMarkdown, ContentHTML, ContentBinary:
		return true
	default:
		return false
	}
}
