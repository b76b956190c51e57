package extract

import (
	"regexp"
	"strings"
)

var (
	blankRunRe = regexp.MustCompile(`\n{3,}`)
	spaceRunRe = regexp.MustCompile(`[ \t]+`)
)

// Normalize makes extractor output uniform regardless of which method
// produced it: Unix line endings, collapsed blank-line and space runs, and
// only printable ASCII plus newlines.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || (r >= 0x20 && r < 0x7f) {
			b.WriteRune(r)
		}
	}
	text = b.String()

	text = spaceRunRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	text = strings.Join(lines, "\n")

	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
