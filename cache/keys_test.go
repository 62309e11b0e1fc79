package cache

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKey_Format(t *testing.T) {
	key := GenerateKey("trips", "hotels in porto", nil, nil)
	assert.Regexp(t, regexp.MustCompile(`^trips:[0-9a-f]{16}$`), key)
}

func TestGenerateKey_Deterministic(t *testing.T) {
	args := []interface{}{"pt", 3}
	kwargs := map[string]interface{}{"limit": 10, "lang": "en"}

	first := GenerateKey("search", "museums", args, kwargs)
	second := GenerateKey("search", "museums", args, kwargs)

	assert.Equal(t, first, second)
}

func TestGenerateKey_NormalizesQuery(t *testing.T) {
	base := GenerateKey("search", "paris", nil, nil)

	assert.Equal(t, base, GenerateKey("search", "PARIS", nil, nil))
	assert.Equal(t, base, GenerateKey("search", "  paris  ", nil, nil))
	assert.Equal(t, base, GenerateKey("SEARCH", "paris", nil, nil))
}

func TestGenerateKey_KwargOrderIndependent(t *testing.T) {
	first := GenerateKey("search", "museums", nil, map[string]interface{}{
		"lang":  "en",
		"limit": 10,
	})
	second := GenerateKey("search", "museums", nil, map[string]interface{}{
		"limit": 10,
		"lang":  "en",
	})

	assert.Equal(t, first, second)
}

func TestGenerateKey_DiscriminatesInputs(t *testing.T) {
	base := GenerateKey("search", "museums", []interface{}{"pt"}, nil)

	assert.NotEqual(t, base, GenerateKey("search", "museums", []interface{}{"es"}, nil))
	assert.NotEqual(t, base, GenerateKey("search", "galleries", []interface{}{"pt"}, nil))
	assert.NotEqual(t, base, GenerateKey("lookup", "museums", []interface{}{"pt"}, nil))
	assert.NotEqual(t, base, GenerateKey("search", "museums", []interface{}{"pt", "es"}, nil))
	assert.NotEqual(t, base,
		GenerateKey("search", "museums", []interface{}{"pt"}, map[string]interface{}{"limit": 5}))
}

func TestGenerateKey_StructuredArguments(t *testing.T) {
	structured := GenerateKey("search", "q", []interface{}{
		map[string]interface{}{"region": "north", "stars": 4},
	}, nil)
	reordered := GenerateKey("search", "q", []interface{}{
		map[string]interface{}{"stars": 4, "region": "north"},
	}, nil)
	assert.Equal(t, structured, reordered)
}
