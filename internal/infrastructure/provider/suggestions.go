package provider

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Research-mode answers embed a fenced SEARCH_TERMS_JSON block at the end
// of the text. It is extracted into a suggestions event and stripped from
// the user-visible answer.
var searchTermsPattern = regexp.MustCompile("(?s)```SEARCH_TERMS_JSON\\s*(\\{.*?\\})\\s*```")

// SearchSuggestions is the parsed payload of the embedded block.
type SearchSuggestions struct {
	SearchTerms []string `json:"searchTerms"`
	Confidence  float64  `json:"confidence"`
	Reasoning   string   `json:"reasoning"`
}

// extractSearchSuggestions parses the first embedded block. Malformed or
// incomplete payloads yield no suggestions rather than an error.
func extractSearchSuggestions(text string) (*SearchSuggestions, bool) {
	match := searchTermsPattern.FindStringSubmatch(text)
	if len(match) < 2 {
		return nil, false
	}
	var s SearchSuggestions
	if err := json.Unmarshal([]byte(strings.TrimSpace(match[1])), &s); err != nil {
		return nil, false
	}
	if s.SearchTerms == nil || s.Reasoning == "" {
		return nil, false
	}
	return &s, true
}

// stripSearchTerms removes every embedded block from the answer text.
func stripSearchTerms(text string) string {
	return strings.TrimSpace(searchTermsPattern.ReplaceAllString(text, ""))
}

// searchSuggestionsPrompt instructs research-mode models to close their
// answer with the machine-readable block the adapters strip back out.
const searchSuggestionsPrompt = `You are a research assistant. Answer the user's question thoroughly.
After your answer, append a fenced code block labelled SEARCH_TERMS_JSON containing a single JSON object with:
- "searchTerms": an array of follow-up search queries the user could explore next,
- "confidence": a number between 0 and 1 for how confident you are in the suggestions,
- "reasoning": one sentence explaining why these terms follow from the conversation.
The block must be valid JSON and must be the last thing in your reply.`
