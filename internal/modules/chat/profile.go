package chat

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/JuanFRosales/MindsetGo/internal/modules/ai"
	"github.com/JuanFRosales/MindsetGo/internal/pkg/scrub"
)

// Profile field length caps. Anything over the cap is dropped, not
// truncated, so a runaway model cannot smuggle long text into the state.
const (
	profileLangMaxLen        = 10
	profileGoalsMaxLen       = 200
	profilePreferencesMaxLen = 200
	profileToneMaxLen        = 50
)

var (
	fenceOpenRE       = regexp.MustCompile("^```[a-zA-Z]*\n?")
	singleQuoteValRE  = regexp.MustCompile(`:\s*'([^']*)'`)
	singleQuoteKeyRE  = regexp.MustCompile(`'([^']*)'\s*:`)
	trailingCommaRE   = regexp.MustCompile(`,\s*([}\]])`)
)

// buildProfileStateJSON turns raw model output into the canonical profile
// state document. The output is always a valid JSON object string; any
// parse or validation failure yields "{}".
func buildProfileStateJSON(raw string) string {
	candidate := raw
	if extracted := extractJSONObject(raw); extracted != "" {
		candidate = extracted
	}
	candidate = normalizeJSONLike(candidate)

	var parsed map[string]interface{}
	if err := ai.DecodeJSON(candidate, &parsed); err != nil {
		return "{}"
	}

	scrubbed, _ := scrub.Values(parsed).(map[string]interface{})
	validated := validateProfile(scrubbed)

	out, err := json.Marshal(validated)
	if err != nil {
		return "{}"
	}
	return string(out)
}

// normalizeJSONLike fixes the quirks models commonly introduce: code
// fences, single-quoted keys or values and trailing commas.
func normalizeJSONLike(s string) string {
	x := strings.TrimSpace(s)
	if strings.HasPrefix(x, "```") {
		x = fenceOpenRE.ReplaceAllString(x, "")
		x = strings.TrimSuffix(x, "```")
		x = strings.TrimSpace(x)
	}
	x = singleQuoteValRE.ReplaceAllString(x, `: "$1"`)
	x = singleQuoteKeyRE.ReplaceAllString(x, `"$1":`)
	x = trailingCommaRE.ReplaceAllString(x, "$1")
	return x
}

// extractJSONObject returns the first balanced {...} block, or "" when the
// input has none.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// validateProfile whitelists the known fields and drops everything else.
func validateProfile(v map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	if v == nil {
		return out
	}

	if lang, ok := v["lang"].(string); ok && len(lang) <= profileLangMaxLen {
		out["lang"] = lang
	}
	if goals, ok := v["goals"].(string); ok && len(goals) <= profileGoalsMaxLen {
		out["goals"] = goals
	}
	if prefs, ok := v["preferences"].(string); ok && len(prefs) <= profilePreferencesMaxLen {
		out["preferences"] = prefs
	}
	if tone, ok := v["tone"].(string); ok && len(tone) <= profileToneMaxLen {
		out["tone"] = tone
	}
	if updatedAt, ok := v["updatedAt"].(float64); ok {
		out["updatedAt"] = updatedAt
	}

	return out
}
