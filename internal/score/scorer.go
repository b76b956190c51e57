// Package score contains the heuristic resume scorer. Everything here is a
// pure function of the input text, so scores are reproducible and cheap to
// recompute in tests.
package score

import (
	"regexp"
	"strings"
)

// Detail is the structured breakdown persisted alongside the score.
type Detail struct {
	HasEmail    bool `json:"hasEmail"`
	HasPhone    bool `json:"hasPhone"`
	HasLinkedIn bool `json:"hasLinkedIn"`
	HasGitHub   bool `json:"hasGitHub"`

	HasExperience bool `json:"hasExperience"`
	HasEducation  bool `json:"hasEducation"`
	HasSkills     bool `json:"hasSkills"`
	HasProjects   bool `json:"hasProjects"`

	WordCount int `json:"wordCount"`
	CharCount int `json:"charCount"`

	Score int `json:"score"`
}

// Flag weights. All-or-nothing, no partial credit; the sum caps at 100.
const (
	weightEmail      = 15
	weightPhone      = 10
	weightLinkedIn   = 10
	weightGitHub     = 10
	weightExperience = 20
	weightEducation  = 15
	weightSkills     = 15
	weightProjects   = 5
)

var (
	emailRe    = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe    = regexp.MustCompile(`\+?\d{1,3}[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}|\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}|\b\d{10}\b`)
	linkedInRe = regexp.MustCompile(`(?i)linkedin\.com/in/[a-zA-Z0-9-]+`)
	gitHubRe   = regexp.MustCompile(`(?i)github\.com/[a-zA-Z0-9-]+`)
)

var sectionKeywords = map[string][]string{
	"experience": {"experience", "work history", "employment", "professional experience"},
	"education":  {"education", "academic", "qualifications", "degree"},
	"skills":     {"skills", "technical skills", "technologies", "competencies"},
	"projects":   {"projects", "personal projects", "portfolio"},
}

// Score evaluates normalized resume text and returns the weighted breakdown.
func Score(text string) Detail {
	lower := strings.ToLower(text)

	d := Detail{
		HasEmail:    emailRe.MatchString(text),
		HasPhone:    phoneRe.MatchString(text),
		HasLinkedIn: linkedInRe.MatchString(text),
		HasGitHub:   gitHubRe.MatchString(text),

		HasExperience: hasSection(lower, sectionKeywords["experience"]),
		HasEducation:  hasSection(lower, sectionKeywords["education"]),
		HasSkills:     hasSection(lower, sectionKeywords["skills"]),
		HasProjects:   hasSection(lower, sectionKeywords["projects"]),

		WordCount: len(strings.Fields(text)),
		CharCount: len(text),
	}

	total := 0
	if d.HasEmail {
		total += weightEmail
	}
	if d.HasPhone {
		total += weightPhone
	}
	if d.HasLinkedIn {
		total += weightLinkedIn
	}
	if d.HasGitHub {
		total += weightGitHub
	}
	if d.HasExperience {
		total += weightExperience
	}
	if d.HasEducation {
		total += weightEducation
	}
	if d.HasSkills {
		total += weightSkills
	}
	if d.HasProjects {
		total += weightProjects
	}
	if total > 100 {
		total = 100
	}
	d.Score = total
	return d
}

func hasSection(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if containsWord(lower, kw) {
			return true
		}
	}
	return false
}

// containsWord reports whether kw occurs in lower on word boundaries, so
// "skills" does not match inside "upskilling".
func containsWord(lower, kw string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		beforeOK := start == 0 || !isWordChar(lower[start-1])
		afterOK := end == len(lower) || !isWordChar(lower[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_'
}
