// Package match implements the wildcard patterns used by every dbus-txt
// filter. A '*' matches any run of characters (including none), a '?'
// matches exactly one character, and everything else matches itself.
// Matching is anchored at both ends and case-sensitive; '/' and '.' have
// no special meaning.
//
// Characters are compared as raw bytes. A '?' consumes one UTF-8 encoded
// character, or a single byte where the input is not valid UTF-8, so
// U+FFFD in a pattern never stands in for a malformed byte.
package match

import (
	"strings"
	"unicode/utf8"
)

// Pattern is a compiled wildcard pattern. The zero value matches
// everything.
type Pattern struct {
	raw string

	// exact is set for patterns without '*'. Only prefix is used then.
	exact  bool
	prefix []string
	middle [][]string
	suffix []string
}

// chars splits s into characters: each valid UTF-8 sequence, or each
// byte that does not start one.
func chars(s string) []string {
	out := make([]string, 0, len(s))
	for len(s) > 0 {
		_, n := utf8.DecodeRuneInString(s)
		out = append(out, s[:n])
		s = s[n:]
	}
	return out
}

// Compile parses pattern. It never fails: every string is a valid
// pattern, and the empty string matches everything.
func Compile(pattern string) *Pattern {
	p := &Pattern{raw: pattern}
	if pattern == "" {
		return p
	}

	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		p.exact = true
		p.prefix = chars(pattern)
		return p
	}

	p.prefix = chars(parts[0])
	p.suffix = chars(parts[len(parts)-1])
	for _, part := range parts[1 : len(parts)-1] {
		// Runs of consecutive stars collapse to a single one.
		if part == "" {
			continue
		}
		p.middle = append(p.middle, chars(part))
	}
	return p
}

// Match reports whether candidate matches pattern. Callers matching the
// same pattern repeatedly should Compile it once instead.
func Match(pattern, candidate string) bool {
	return Compile(pattern).Match(candidate)
}

func (p *Pattern) String() string {
	if p == nil {
		return ""
	}
	return p.raw
}

// MatchesAll reports whether p accepts every candidate.
func (p *Pattern) MatchesAll() bool {
	if p == nil || p.raw == "" {
		return true
	}
	if p.exact {
		return false
	}
	return len(p.prefix) == 0 && len(p.suffix) == 0 && len(p.middle) == 0
}

// Match reports whether the whole of candidate matches p. It runs in
// O(len(candidate) * len(pattern)) regardless of how many stars the
// pattern holds: the segments between stars are placed greedily at their
// leftmost position, which never needs to be revisited.
func (p *Pattern) Match(candidate string) bool {
	if p.MatchesAll() {
		return true
	}

	s := chars(candidate)
	if p.exact {
		return len(s) == len(p.prefix) && segmentAt(s, 0, p.prefix)
	}

	if len(s) < len(p.prefix)+len(p.suffix) {
		return false
	}
	if !segmentAt(s, 0, p.prefix) {
		return false
	}
	if !segmentAt(s, len(s)-len(p.suffix), p.suffix) {
		return false
	}

	window := s[len(p.prefix) : len(s)-len(p.suffix)]
	for _, seg := range p.middle {
		i := indexSegment(window, seg)
		if i < 0 {
			return false
		}
		window = window[i+len(seg):]
	}
	return true
}

// segmentAt reports whether seg matches s starting at offset.
func segmentAt(s []string, offset int, seg []string) bool {
	if offset < 0 || offset+len(seg) > len(s) {
		return false
	}
	for i, c := range seg {
		if c != "?" && c != s[offset+i] {
			return false
		}
	}
	return true
}

func indexSegment(s []string, seg []string) int {
	for i := 0; i+len(seg) <= len(s); i++ {
		if segmentAt(s, i, seg) {
			return i
		}
	}
	return -1
}
