package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CleanJSONResponse strips common formatting from model JSON output:
// markdown code fences and surrounding whitespace.
func CleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// ParseKeywordMap parses a keyword dictionary out of a model response. It
// first tries the cleaned response verbatim, then falls back to the text
// between the first '{' and the last '}'. Models wrap JSON in prose often
// enough that the fallback earns its keep.
func ParseKeywordMap(response string) (map[string]string, error) {
	cleaned := CleanJSONResponse(response)

	var result map[string]string
	if err := json.Unmarshal([]byte(cleaned), &result); err == nil {
		return result, nil
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(response[start:end+1]), &result); err == nil {
			return result, nil
		}
	}

	return nil, fmt.Errorf("response is not a valid keyword dictionary")
}
