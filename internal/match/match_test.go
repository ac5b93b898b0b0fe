package match

import (
	"strings"
	"testing"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern   string
		candidate string
		want      bool
	}{
		{"", "", true},
		{"", "anything", true},
		{"*", "", true},
		{"*", "org.freedesktop.DBus", true},
		{"a?c", "abc", true},
		{"a?c", "ac", false},
		{"a?c", "abbc", false},
		{"a*c", "axxxc", true},
		{"a*c", "ac", true},
		{"a*c", "acb", false},
		{"org.freedesktop.*", "org.freedesktop.Notifications", true},
		{"org.freedesktop.*", "org.gnome.Shell", false},
		{"*Notif*", "org.freedesktop.Notifications", true},
		{"/org/*/Foo", "/org/example/deep/Foo", true},
		{"/org/?", "/org/a/b", false},
		{"com.example.Foo", "com.example.Foo", true},
		{"com.example.Foo", "com.example.Foobar", false},
		{"com.example.foo", "com.example.Foo", false},
		{"**a**", "bab", true},
		{"*a*b", "ab", true},
		{"*a*b", "ba", false},
		{"a*b*c", "abc", true},
		{"a*b*c", "acb", false},
		{"?", "é", true},
		{"??", "é", false},
		{"*.?", "x.y", true},
		{"ab*ba", "aba", false},
		{"ab*ba", "abba", true},
		{"a\uFFFDc", "a\xffc", false},
		{"a\uFFFDc", "a\uFFFDc", true},
		{"a?c", "a\xffc", true},
		{"a\xffc", "a\xffc", true},
		{"a\xffc", "a\xfec", false},
		{"?", "\xff\xfe", false},
		{"??", "\xff\xfe", true},
		{"*\xff", "cmd --opt=\xff", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.candidate, func(t *testing.T) {
			if got := Match(tt.pattern, tt.candidate); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestLiteralPatternIsEquality(t *testing.T) {
	names := []string{"", "a", "org.freedesktop.DBus", "/com/example/Foo", ":1.42", "with space"}
	for _, p := range names {
		if p == "" {
			continue
		}
		compiled := Compile(p)
		for _, s := range names {
			if got, want := compiled.Match(s), p == s; got != want {
				t.Errorf("Compile(%q).Match(%q) = %v, want %v", p, s, got, want)
			}
		}
	}
}

func TestMatchesAll(t *testing.T) {
	for _, p := range []string{"", "*", "***"} {
		if !Compile(p).MatchesAll() {
			t.Errorf("Compile(%q).MatchesAll() = false", p)
		}
	}
	for _, p := range []string{"?", "a", "*a", "?*"} {
		if Compile(p).MatchesAll() {
			t.Errorf("Compile(%q).MatchesAll() = true", p)
		}
	}
	var nilPattern *Pattern
	if !nilPattern.Match("x") {
		t.Error("nil pattern should match everything")
	}
}

// These inputs make a backtracking matcher take exponential time. They
// must finish promptly here.
func TestAdversarialPatterns(t *testing.T) {
	long := strings.Repeat("a", 20000)

	tests := []struct {
		name      string
		pattern   string
		candidate string
		want      bool
	}{
		{"many stars no match", strings.Repeat("a*", 40) + "b", long, false},
		{"many stars match", strings.Repeat("a*", 40) + "a", long, true},
		{"consecutive stars", "a" + strings.Repeat("*", 5000) + "b", long + "b", true},
		{"star question mix", strings.Repeat("*?", 50) + "b", long, false},
		{"trailing literal miss", "*" + strings.Repeat("a", 100) + "b*", long, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.pattern, tt.candidate); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// reference is a straightforward dynamic-programming glob matcher used to
// cross-check the compiled matcher.
func reference(pattern, candidate string) bool {
	p := chars(pattern)
	s := chars(candidate)
	dp := make([]bool, len(s)+1)
	dp[0] = true
	for _, pr := range p {
		next := make([]bool, len(s)+1)
		if pr == "*" {
			seen := false
			for j := 0; j <= len(s); j++ {
				seen = seen || dp[j]
				next[j] = seen
			}
		} else {
			for j := 1; j <= len(s); j++ {
				next[j] = dp[j-1] && (pr == "?" || pr == s[j-1])
			}
		}
		dp = next
	}
	return dp[len(s)]
}

func FuzzMatch(f *testing.F) {
	f.Add("a*c", "abc")
	f.Add("*?*", "")
	f.Add("org.*.DBus", "org.freedesktop.DBus")
	f.Add("?é*", "xé")
	f.Add("**", "")
	f.Add("a\uFFFD*", "a\xff\xfe")

	f.Fuzz(func(t *testing.T, pattern, candidate string) {
		if len(pattern) > 64 || len(candidate) > 256 {
			t.Skip()
		}
		want := pattern == "" || reference(pattern, candidate)
		if got := Match(pattern, candidate); got != want {
			t.Fatalf("Match(%q, %q) = %v, reference says %v", pattern, candidate, got, want)
		}
	})
}
