package score

import (
	"sort"
	"strings"
)

// skillKeywords is the keyword vocabulary used for local resume/job-description
// matching when the AI match evaluation is unavailable or unparseable.
var skillKeywords = []string{
	"Python", "JavaScript", "Java", "C++", "C#", "Go", "Rust", "TypeScript",
	"Ruby", "PHP", "Swift", "Kotlin", "Scala",
	"HTML", "CSS", "React", "Angular", "Vue.js", "Node.js", "Express.js",
	"Django", "Flask", "FastAPI", "Spring Boot", "Next.js",
	"SQL", "MySQL", "PostgreSQL", "MongoDB", "Redis", "SQLite", "DynamoDB",
	"AWS", "Azure", "GCP", "Docker", "Kubernetes", "Jenkins", "CI/CD",
	"Terraform", "Git", "Linux", "Bash",
	"Machine Learning", "Deep Learning", "TensorFlow", "PyTorch", "NLP",
	"Data Analysis", "Pandas", "NumPy", "Spark",
	"REST API", "GraphQL", "Microservices", "Agile", "Scrum",
	"Testing", "Unit Testing", "Selenium",
}

// SkillMatchResult compares a resume against a job description on shared
// skill keywords.
type SkillMatchResult struct {
	Matched      []string `json:"matchedSkills"`
	Missing      []string `json:"missingSkills"`
	MatchPercent float64  `json:"matchScore"`
}

// SkillMatch is the deterministic local fallback for job-description matching:
// the percentage of the job description's recognized skills that the resume
// also mentions. Both inputs are matched case-insensitively.
func SkillMatch(resumeText, jobDescription string) SkillMatchResult {
	resumeSkills := findSkills(resumeText)
	jdSkills := findSkills(jobDescription)

	res := SkillMatchResult{Matched: []string{}, Missing: []string{}}
	for skill := range jdSkills {
		if resumeSkills[skill] {
			res.Matched = append(res.Matched, skill)
		} else {
			res.Missing = append(res.Missing, skill)
		}
	}
	sort.Strings(res.Matched)
	sort.Strings(res.Missing)

	if len(jdSkills) > 0 {
		res.MatchPercent = float64(len(res.Matched)) / float64(len(jdSkills)) * 100
	}
	return res
}

func findSkills(text string) map[string]bool {
	lower := strings.ToLower(text)
	found := make(map[string]bool)
	for _, skill := range skillKeywords {
		if strings.Contains(lower, strings.ToLower(skill)) {
			found[skill] = true
		}
	}
	return found
}
