package scrub

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextReplacesIdentifiers(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"hetu", "my id is 131052-308T thanks", "[SOCIAL_SECURITY_NUMBER]"},
		{"email", "mail me at foo.bar@example.com please", "[EMAIL]"},
		{"uuidv7", "user 01890a5d-ac96-774b-bcce-b302099a8057 wrote", "[USER_ID]"},
		{"bearer", "header was Bearer abcdefghij12345.abcdefghij", "[TOKEN]"},
		{"api key", "use sk_live_abcdef123456789 for billing", "[TOKEN]"},
		{"secret kv", "password: hunter22, ok?", "[REDACTED]"},
		{"phone", "call +358 40 123 4567 now", "[PHONE]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Text(tc.in)
			assert.Contains(t, got, tc.want)
		})
	}
}

func TestTextKeepsShortNumbers(t *testing.T) {
	got := Text("the year 2024 and price 1500")
	assert.Contains(t, got, "2024")
	assert.Contains(t, got, "1500")
}

func TestTextIdempotent(t *testing.T) {
	in := "email foo@example.com phone +358401234567 password=topsecret"
	once := Text(in)
	twice := Text(once)
	assert.Equal(t, once, twice)
}

func TestTextStripsNULAndClamps(t *testing.T) {
	assert.Equal(t, "ab", Text("a\x00b"))

	long := strings.Repeat("x", MaxLen+500)
	assert.Len(t, Text(long), MaxLen)
}

func TestValuesWalksNestedStructures(t *testing.T) {
	in := map[string]interface{}{
		"note":  "reach me at foo@example.com",
		"count": float64(3),
		"list":  []interface{}{"token: abcd1234efgh"},
	}

	out, ok := Values(in).(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, float64(3), out["count"])
	assert.Contains(t, out["note"], "[EMAIL]")

	list, ok := out["list"].([]interface{})
	assert.True(t, ok)
	assert.Contains(t, list[0], "[REDACTED]")
}
