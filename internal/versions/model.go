// Package versions stores the outputs of generation jobs. Each output is one
// immutable GenerationVersion keyed by (document, kind, versionKey); the
// versionKey is the caller-supplied idempotency key, so resubmitting it
// observes the stored result instead of re-running the generation call.
package versions

import "time"

// Kind separates the two generation pipelines.
type Kind string

const (
	// KindCustomization is a full resume rewrite against a job description.
	KindCustomization Kind = "customization"
	// KindMessage is a short outreach message derived from the resume.
	KindMessage Kind = "message"
)

// MaxVersions is the retention cap per document for this kind; older entries
// are trimmed once it is exceeded.
func (k Kind) MaxVersions() int {
	if k == KindMessage {
		return 30
	}
	return 50
}

// Valid reports whether k names a known kind.
func (k Kind) Valid() bool {
	return k == KindCustomization || k == KindMessage
}

// Status is a version's position in its lifecycle. Versions are never
// reopened once terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s allows no further mutation.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Version is one versioned generation output attached to a document.
type Version struct {
	DocumentID string
	Kind       Kind
	VersionKey string
	Status     Status

	// InputContext keeps a truncated copy of what the generation ran
	// against (job description or source text), preserved on failure too.
	InputContext string

	ResultText   string
	MatchScore   *float64
	MatchSummary string

	Error string

	CreatedAt time.Time
	UpdatedAt time.Time
}
