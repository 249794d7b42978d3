package generator

import (
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)^```(?:markdown|md)?[ \t]*\n(.*)\n```$")

// PostProcess normalizes a raw completion before it is handed to later stages.
// A reply wrapped whole in a ```markdown fence is unwrapped.
func PostProcess(raw string) (string, error) {
	md := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	if m := fencedBlockRe.FindStringSubmatch(md); len(m) == 2 {
		md = strings.TrimSpace(m[1])
	}
	if md == "" {
		return "", ErrEmptyCompletion
	}
	return md, nil
}

// Digest collapses whitespace and cuts text to at most limit runes.
func Digest(md string, limit int) string {
	joined := strings.Join(strings.Fields(md), " ")
	runes := []rune(joined)
	if len(runes) <= limit {
		return joined
	}
	return string(runes[:limit]) + "…"
}
