package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProfileStateJSON(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want map[string]interface{}
	}{
		{
			name: "plain object",
			raw:  `{"lang":"fi","goals":"sleep better","tone":"warm"}`,
			want: map[string]interface{}{"lang": "fi", "goals": "sleep better", "tone": "warm"},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"lang\":\"en\"}\n```",
			want: map[string]interface{}{"lang": "en"},
		},
		{
			name: "single quotes and trailing comma",
			raw:  `{'lang': 'sv', 'tone': 'direct',}`,
			want: map[string]interface{}{"lang": "sv", "tone": "direct"},
		},
		{
			name: "object embedded in prose",
			raw:  `Here is the update: {"lang":"fi"} hope that helps!`,
			want: map[string]interface{}{"lang": "fi"},
		},
		{
			name: "unknown fields dropped",
			raw:  `{"lang":"fi","ssn":"131052-308T","nested":{"a":1}}`,
			want: map[string]interface{}{"lang": "fi"},
		},
		{
			name: "overlong fields dropped",
			raw:  `{"lang":"this-is-way-too-long-for-a-language-code"}`,
			want: map[string]interface{}{},
		},
		{
			name: "numeric updatedAt kept",
			raw:  `{"updatedAt": 1700000000000}`,
			want: map[string]interface{}{"updatedAt": float64(1700000000000)},
		},
		{
			name: "string updatedAt dropped",
			raw:  `{"updatedAt": "yesterday"}`,
			want: map[string]interface{}{},
		},
		{
			name: "garbage",
			raw:  "sorry, I cannot help with that",
			want: map[string]interface{}{},
		},
		{
			name: "array",
			raw:  `["lang","fi"]`,
			want: map[string]interface{}{},
		},
		{
			name: "empty",
			raw:  "",
			want: map[string]interface{}{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := buildProfileStateJSON(tc.raw)

			var got map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildProfileStateJSONScrubsValues(t *testing.T) {
	out := buildProfileStateJSON(`{"goals":"email me at foo@example.com"}`)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "email me at [EMAIL]", got["goals"])
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":{"b":1}}`, extractJSONObject(`noise {"a":{"b":1}} trailing`))
	assert.Equal(t, "", extractJSONObject("no braces here"))
	assert.Equal(t, "", extractJSONObject("{never closed"))
}

func TestNormalizeJSONLike(t *testing.T) {
	assert.Equal(t, `{"a": "b"}`, normalizeJSONLike("```json\n{'a': 'b'}\n```"))
	assert.Equal(t, `{"a": 1}`, normalizeJSONLike(`{"a": 1,}`))
}
