package logging

import (
	"strings"

	"go.uber.org/zap/zaptest/observer"
)

// FilterMessageSnippet returns the observed entries whose message contains the snippet. Handy for
// asserting that a code path logged what it was supposed to.
func FilterMessageSnippet(logs *observer.ObservedLogs, snippet string) []observer.LoggedEntry {
	return logs.FilterMessageSnippet(snippet).AllUntimed()
}

// MessagesContaining counts observed entries whose message contains every given snippet.
func MessagesContaining(logs *observer.ObservedLogs, snippets ...string) int {
	count := 0
	for _, entry := range logs.All() {
		matched := true
		for _, snippet := range snippets {
			if !strings.Contains(entry.Message, snippet) {
				matched = false
				break
			}
		}
		if matched {
			count++
		}
	}
	return count
}
