package score

import (
	"reflect"
	"testing"
)

const sampleResume = `Jane Doe
jane.doe@example.com | (555) 123-4567
linkedin.com/in/janedoe | github.com/janedoe

Experience
Senior Engineer at ACME Corp

Education
B.S. Computer Science

Skills
Go, Python, PostgreSQL

Projects
Built a resume pipeline`

func TestScoreFullResume(t *testing.T) {
	d := Score(sampleResume)

	if !d.HasEmail || !d.HasPhone || !d.HasLinkedIn || !d.HasGitHub {
		t.Fatalf("contact flags = %+v, want all true", d)
	}
	if !d.HasExperience || !d.HasEducation || !d.HasSkills || !d.HasProjects {
		t.Fatalf("section flags = %+v, want all true", d)
	}
	if d.Score != 100 {
		t.Fatalf("score = %d, want 100", d.Score)
	}
	if d.WordCount == 0 || d.CharCount == 0 {
		t.Fatalf("counts = %d words %d chars, want non-zero", d.WordCount, d.CharCount)
	}
}

func TestScoreWeightedSum(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"email only", "reach me at jane@example.com", 15},
		{"phone only", "call 555-123-4567 anytime", 10},
		{"email and experience", "jane@example.com\nExperience\nACME", 35},
		{"sections only", "Experience\nEducation\nSkills\nProjects", 55},
		{"projects only", "Projects\nstuff I built", 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.text).Score; got != tc.want {
				t.Fatalf("Score(%q) = %d, want %d", tc.text, got, tc.want)
			}
		})
	}
}

func TestScoreSectionMatchingIsCaseInsensitiveAndWordBounded(t *testing.T) {
	if !Score("WORK HISTORY\nACME").HasExperience {
		t.Fatal("uppercase section heading not recognized")
	}
	if Score("focused on upskilling teams").HasSkills {
		t.Fatal("substring inside a larger word should not count as a section")
	}
}

func TestScoreDeterministic(t *testing.T) {
	first := Score(sampleResume)
	for i := 0; i < 5; i++ {
		if got := Score(sampleResume); !reflect.DeepEqual(got, first) {
			t.Fatalf("score not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestSkillMatch(t *testing.T) {
	resume := "Experienced with Go, Python, and PostgreSQL. Some Docker."
	jd := "We want Python, Docker, Kubernetes, and Terraform skills."

	res := SkillMatch(resume, jd)

	wantMatched := []string{"Docker", "Python"}
	wantMissing := []string{"Kubernetes", "Terraform"}
	if !reflect.DeepEqual(res.Matched, wantMatched) {
		t.Fatalf("matched = %v, want %v", res.Matched, wantMatched)
	}
	if !reflect.DeepEqual(res.Missing, wantMissing) {
		t.Fatalf("missing = %v, want %v", res.Missing, wantMissing)
	}
	if res.MatchPercent != 50 {
		t.Fatalf("match percent = %v, want 50", res.MatchPercent)
	}
}

func TestSkillMatchNoJDSkills(t *testing.T) {
	res := SkillMatch("Go and Python", "We need a friendly person.")
	if res.MatchPercent != 0 || len(res.Matched) != 0 || len(res.Missing) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}
