package llm

import (
	"strings"

	"tailor-backend/internal/shared/util"
)

// Input caps, in runes. Long resumes and job postings get truncated before
// prompt assembly to bound request size; the match evaluation runs on
// tighter caps since it only needs the gist.
const (
	maxResumeChars     = 6000
	maxJobDescChars    = 3000
	maxEvalTextChars   = 2500
	maxEvalJDChars     = 1500
	maxMessageSrcChars = 3000
)

// MessageTargetChars is the requested length band for outreach messages.
const MessageTargetChars = "300-700"

// BuildRewritePrompt asks for a full rewrite of the resume tailored to the
// job description. Inputs are truncated to their caps first.
func BuildRewritePrompt(resumeText, jobDescription string) string {
	var b strings.Builder
	b.WriteString("You are an expert resume writer. Rewrite the resume below so it is tailored ")
	b.WriteString("to the target job description. Keep it truthful: reorder, rephrase and emphasize, ")
	b.WriteString("but never invent experience. Return only the rewritten resume as plain text.\n\n")
	b.WriteString("Resume:\n")
	b.WriteString(util.Truncate(resumeText, maxResumeChars))
	b.WriteString("\n\nTarget job description:\n")
	b.WriteString(util.Truncate(jobDescription, maxJobDescChars))
	return b.String()
}

// BuildMatchEvalPrompt asks for a structured evaluation of the rewritten
// resume against the job description. The response schema is requested but
// not guaranteed; see ParseMatchEvaluation.
func BuildMatchEvalPrompt(rewrittenResume, jobDescription string) string {
	var b strings.Builder
	b.WriteString("Evaluate how well the resume below matches the job description. ")
	b.WriteString("Respond with a single JSON object and nothing else, shaped like:\n")
	b.WriteString(`{"matchScore": 0-100, "shortlistProbability": 0-100, "summary": "one or two sentences"}`)
	b.WriteString("\n\nResume:\n")
	b.WriteString(util.Truncate(rewrittenResume, maxEvalTextChars))
	b.WriteString("\n\nJob description:\n")
	b.WriteString(util.Truncate(jobDescription, maxEvalJDChars))
	return b.String()
}

// BuildMessagePrompt asks for a short outreach message grounded in the
// source text (usually the extracted resume).
func BuildMessagePrompt(sourceText string) string {
	var b strings.Builder
	b.WriteString("Write a short, professional outreach message a candidate could send to a ")
	b.WriteString("recruiter, grounded in the background below. Target ")
	b.WriteString(MessageTargetChars)
	b.WriteString(" characters. Return only the message text.\n\nBackground:\n")
	b.WriteString(util.Truncate(sourceText, maxMessageSrcChars))
	return b.String()
}
