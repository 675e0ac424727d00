package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

var (
	jobRangePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\s*-\s*(\d+)\s*years?`),
		regexp.MustCompile(`(\d+)\s*to\s*(\d+)\s*years?`),
	}
	jobMinPatterns = []*regexp.Regexp{
		regexp.MustCompile(`minimum\s*(\d+)\s*years?`),
		regexp.MustCompile(`at\s*least\s*(\d+)\s*years?`),
	}
	jobPlusPattern = regexp.MustCompile(`(\d+)\+\s*years?`)

	resumeYearsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\+?\s*years?\s+(?:of\s+)?experience`),
		regexp.MustCompile(`experience[:\s]+(\d+)\+?\s*years?`),
		regexp.MustCompile(`(\d+)\+?\s*years?\s+in`),
	}
	yearSpanPattern = regexp.MustCompile(`(?:19|20)\d{2}\s*[-–—]\s*(?:19|20)\d{2}`)
)

// yearsPerSpan is the rough tenure assumed for each "2018-2020" style entry.
const yearsPerSpan = 2.0

// maxYears bounds a believable experience figure; larger numbers are not
// read as years.
const maxYears = 100

// JobExperience reads the required experience range from job text.
// Ranges ("3-5 years", "3 to 5 years") win over minimums ("minimum 3 years",
// "at least 3 years"), which win over "5+ years". The first match of the
// winning form is used. No mention yields an empty range.
func JobExperience(text string) domain.ExperienceRange {
	lower := strings.ToLower(text)
	for _, re := range jobRangePatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			lo, okLo := parseYears(m[1])
			hi, okHi := parseYears(m[2])
			if !okLo || !okHi {
				continue
			}
			if hi < lo {
				lo, hi = hi, lo
			}
			return domain.ExperienceRange{Min: &lo, Max: &hi}
		}
	}
	for _, re := range jobMinPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			if lo, ok := parseYears(m[1]); ok {
				return domain.ExperienceRange{Min: &lo}
			}
		}
	}
	if m := jobPlusPattern.FindStringSubmatch(lower); m != nil {
		if lo, ok := parseYears(m[1]); ok {
			return domain.ExperienceRange{Min: &lo}
		}
	}
	return domain.ExperienceRange{}
}

// ResumeYears estimates years of experience from resume text: the largest
// explicit "N years ..." mention, else two years per "YYYY-YYYY" span.
// Mentions that do not parse as a believable number are ignored.
// Returns nil when neither is present.
func ResumeYears(text string) *float64 {
	lower := strings.ToLower(text)
	best, found := 0.0, false
	for _, re := range resumeYearsPatterns {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			v, ok := parseYears(m[1])
			if !ok {
				continue
			}
			if !found || v > best {
				best, found = v, true
			}
		}
	}
	if found {
		return &best
	}
	if n := len(yearSpanPattern.FindAllString(text, -1)); n > 0 {
		est := float64(n) * yearsPerSpan
		return &est
	}
	return nil
}

// parseYears reads a digit run as years. Overflowing or implausible values
// report false so the mention is ignored rather than read as zero.
func parseYears(s string) (float64, bool) {
	v, err := strconv.Atoi(s)
	if err != nil || v > maxYears {
		return 0, false
	}
	return float64(v), true
}
