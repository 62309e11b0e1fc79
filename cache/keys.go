package cache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/voyagekit/tripcache/utils"
)

// keySep is a unit separator between hashed fields, so adjacent values can
// never be confused for a single concatenated one.
const keySep = "\x1f"

// GenerateKey derives a deterministic cache key of the form
// {prefix}:{digest}. The digest covers the case-folded operation prefix,
// the normalized query, the positional args in order, and the keyword args
// sorted by key, so insertion order never changes the result. The digest is
// a fixed-length xxhash64 hex; collision resistance is a correctness
// concern here, not a security one.
func GenerateKey(prefix, query string, args []interface{}, kwargs map[string]interface{}) string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))

	d := xxhash.New()
	_, _ = d.WriteString(prefix)
	_, _ = d.WriteString(keySep)
	_, _ = d.WriteString(strings.ToLower(strings.TrimSpace(query)))

	for _, arg := range args {
		_, _ = d.WriteString(keySep)
		_, _ = d.WriteString(stringifyArg(arg))
	}

	if len(kwargs) > 0 {
		names := make([]string, 0, len(kwargs))
		for name := range kwargs {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			_, _ = d.WriteString(keySep)
			_, _ = d.WriteString(name)
			_, _ = d.WriteString("=")
			_, _ = d.WriteString(stringifyArg(kwargs[name]))
		}
	}

	return fmt.Sprintf("%s:%016x", prefix, d.Sum64())
}

func stringifyArg(v interface{}) string {
	switch typed := v.(type) {
	case nil:
		return "null"
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'g', -1, 64)
	default:
		data, err := utils.MarshalCanonical(v)
		if err != nil {
			// Rare enough to fall back to fmt; still deterministic for
			// the value types that reach this path.
			return fmt.Sprintf("%v", v)
		}
		return utils.BytesToString(data)
	}
}
