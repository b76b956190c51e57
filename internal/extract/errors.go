package extract

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned when the file extension maps to no
// extractor family. No extractor runs in that case.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ExtractionError reports that every extractor in a family was exhausted.
// Method names the last attempt; Err is the last attempt's failure.
type ExtractionError struct {
	Method string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extraction failed (last method %s)", e.Method)
	}
	return fmt.Sprintf("extraction failed (last method %s): %v", e.Method, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
