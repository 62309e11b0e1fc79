package cache

import (
	"strings"
	"time"

	"github.com/voyagekit/tripcache/types"
)

// classifierRule pairs a signal list with the content type it selects.
// Rules are evaluated strictly in order; the first match wins, no scoring.
type classifierRule struct {
	contentType types.ContentType
	keywords    []string
	domains     []string
}

var classifierRules = []classifierRule{
	{
		contentType: types.ContentRealtime,
		keywords: []string{
			"weather", "forecast", "temperature", "flight status", "delayed",
			"live", "right now", "current price", "fare", "availability",
			"exchange rate", "traffic",
		},
		domains: []string{
			"weather.com", "accuweather.com", "openweathermap.org",
			"flightaware.com", "flightradar24.com", "skyscanner.net",
		},
	},
	{
		contentType: types.ContentTimeSensitive,
		keywords: []string{
			"news", "event", "festival", "concert", "today", "tonight",
			"this week", "open now", "strike", "advisory", "trending",
		},
		domains: []string{
			"news.google.com", "reuters.com", "bbc.com", "twitter.com",
			"x.com", "reddit.com", "eventbrite.com",
		},
	},
	{
		contentType: types.ContentStatic,
		keywords: []string{
			"history", "historical", "wiki", "guide", "landmark", "museum",
			"geography", "culture", "timezone", "visa requirements",
			"currency of", "population of",
		},
		domains: []string{
			"wikipedia.org", "wikivoyage.org", "britannica.com", "unesco.org",
		},
	},
}

// Classify maps free-text signals to exactly one content type. Empty inputs
// fall through to daily, the safe moderate-freshness default. Pure function.
func Classify(query string, domains []string) types.ContentType {
	q := strings.ToLower(strings.TrimSpace(query))

	for _, rule := range classifierRules {
		if rule.matches(q, domains) {
			return rule.contentType
		}
	}

	return types.ContentDaily
}

func (r classifierRule) matches(query string, domains []string) bool {
	if query != "" {
		for _, kw := range r.keywords {
			if strings.Contains(query, kw) {
				return true
			}
		}
	}

	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		for _, ruleDomain := range r.domains {
			if domain == ruleDomain || strings.HasSuffix(domain, "."+ruleDomain) {
				return true
			}
		}
	}

	return false
}

// TTLPolicy resolves write TTLs: an explicit TTL always wins, then the
// configured override for the entry's content type, then the built-in
// default. Exactly one TTL comes out of every resolution.
type TTLPolicy struct {
	overrides map[types.ContentType]time.Duration
}

func NewTTLPolicy(overrides map[string]time.Duration) (*TTLPolicy, error) {
	resolved := make(map[types.ContentType]time.Duration, len(overrides))

	for name, ttl := range overrides {
		ct := types.ContentType(name)
		if !ct.Valid() || !ct.Temporal() {
			return nil, types.Errorf(types.ErrContentTypeInvalid, "ttl override: %s", name)
		}
		if ttl <= 0 {
			return nil, types.Errorf(types.ErrConfigValidateFailed, "ttl override for %s must be positive", name)
		}
		resolved[ct] = ttl
	}

	return &TTLPolicy{overrides: resolved}, nil
}

func (p *TTLPolicy) TTLFor(ct types.ContentType) time.Duration {
	if ttl, ok := p.overrides[ct]; ok {
		return ttl
	}
	if ct.Temporal() {
		return ct.DefaultTTL()
	}
	return p.TTLFor(types.ContentDaily)
}

// Resolve picks the single TTL for a write. explicit > 0 overrides the
// content type; NoExpiry disables expiry outright.
func (p *TTLPolicy) Resolve(explicit time.Duration, ct types.ContentType) time.Duration {
	if explicit == NoExpiry {
		return 0
	}
	if explicit > 0 {
		return explicit
	}
	return p.TTLFor(ct)
}
