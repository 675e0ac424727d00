// Package extract derives structured matching signals (skills, experience)
// from free resume and job text.
package extract

import (
	"regexp"
	"strings"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// SkillExtractor finds taxonomy skills mentioned in text.
// It is immutable after construction and safe for concurrent use.
type SkillExtractor struct {
	patterns map[string]*regexp.Regexp
}

// NewSkillExtractor compiles one boundary-aware pattern per skill.
func NewSkillExtractor(skills []string) *SkillExtractor {
	e := &SkillExtractor{patterns: make(map[string]*regexp.Regexp, len(skills))}
	for _, s := range skills {
		n := domain.NormalizeSkill(s)
		if n == "" {
			continue
		}
		// skills like c++, c# and node.js carry symbols, so \b is not enough
		e.patterns[n] = regexp.MustCompile(`(?:^|[^a-z0-9+#.])` + regexp.QuoteMeta(n) + `(?:$|[^a-z0-9+#])`)
	}
	return e
}

// Extract returns the set of known skills mentioned in text.
// "go" does not match inside "google" and "java" not inside "javascript".
func (e *SkillExtractor) Extract(text string) domain.SkillSet {
	lower := strings.ToLower(text)
	found := domain.NewSkillSet()
	for skill, re := range e.patterns {
		if re.MatchString(lower) {
			found[skill] = struct{}{}
		}
	}
	return found
}

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// Email returns the first email address in text, or "".
func Email(text string) string { return emailPattern.FindString(text) }

// Name guesses the candidate name as the first short non-empty line among
// the first five lines of a resume.
func Name(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 5 {
		lines = lines[:5]
	}
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" && len(strings.Fields(l)) <= 4 && len(l) < 50 {
			return l
		}
	}
	return ""
}
