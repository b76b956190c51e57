package llm

import (
	"strings"
	"testing"
)

func TestParseMatchEvaluationPlainObject(t *testing.T) {
	raw := `{"matchScore": 82, "shortlistProbability": 64.5, "summary": "Strong backend fit."}`
	eval, err := ParseMatchEvaluation(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if eval.MatchScore == nil || *eval.MatchScore != 82 {
		t.Fatalf("matchScore = %v, want 82", eval.MatchScore)
	}
	if eval.ShortlistProbability == nil || *eval.ShortlistProbability != 64.5 {
		t.Fatalf("shortlistProbability = %v, want 64.5", eval.ShortlistProbability)
	}
	if eval.Summary != "Strong backend fit." {
		t.Fatalf("summary = %q", eval.Summary)
	}
}

func TestParseMatchEvaluationCodeFence(t *testing.T) {
	raw := "```json\n{\"matchScore\": 50, \"shortlistProbability\": 40, \"summary\": \"ok\"}\n```"
	eval, err := ParseMatchEvaluation(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if eval.MatchScore == nil || *eval.MatchScore != 50 {
		t.Fatalf("matchScore = %v, want 50", eval.MatchScore)
	}
}

func TestParseMatchEvaluationSurroundingProse(t *testing.T) {
	raw := "Here is my evaluation:\n{\"matchScore\": \"73\", \"summary\": \"Decent {match} overall\"}\nHope that helps!"
	eval, err := ParseMatchEvaluation(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if eval.MatchScore == nil || *eval.MatchScore != 73 {
		t.Fatalf("matchScore = %v, want 73 coerced from string", eval.MatchScore)
	}
	if eval.ShortlistProbability != nil {
		t.Fatalf("shortlistProbability should be nil when absent, got %v", *eval.ShortlistProbability)
	}
	if eval.Summary != "Decent {match} overall" {
		t.Fatalf("summary = %q", eval.Summary)
	}
}

func TestParseMatchEvaluationNoObject(t *testing.T) {
	if _, err := ParseMatchEvaluation("I cannot evaluate this resume."); err == nil {
		t.Fatal("expected error for output without a JSON object")
	}
	if _, err := ParseMatchEvaluation("{\"matchScore\": 5"); err == nil {
		t.Fatal("expected error for unbalanced object")
	}
}

func TestParseMatchEvaluationBadFieldTypes(t *testing.T) {
	raw := `{"matchScore": null, "shortlistProbability": "high", "summary": 12}`
	eval, err := ParseMatchEvaluation(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if eval.MatchScore != nil || eval.ShortlistProbability != nil || eval.Summary != "" {
		t.Fatalf("expected all fields degraded to zero values, got %+v", eval)
	}
}

func TestPromptsTruncateLongInputs(t *testing.T) {
	longResume := strings.Repeat("x", maxResumeChars*2)
	prompt := BuildRewritePrompt(longResume, "short jd")
	if len(prompt) > maxResumeChars+maxJobDescChars+500 {
		t.Fatalf("rewrite prompt not truncated, len = %d", len(prompt))
	}
	if !strings.Contains(prompt, "short jd") {
		t.Fatal("rewrite prompt missing job description")
	}

	msg := BuildMessagePrompt(strings.Repeat("y", maxMessageSrcChars*3))
	if len(msg) > maxMessageSrcChars+500 {
		t.Fatalf("message prompt not truncated, len = %d", len(msg))
	}
	if !strings.Contains(msg, MessageTargetChars) {
		t.Fatal("message prompt missing length target")
	}
}

func TestBuildMatchEvalPromptRequestsSchema(t *testing.T) {
	prompt := BuildMatchEvalPrompt("resume text", "jd text")
	for _, want := range []string{"matchScore", "shortlistProbability", "summary", "resume text", "jd text"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("eval prompt missing %q", want)
		}
	}
}
