// Package extract pulls plain text out of uploaded resume documents.
//
// Each format family is an ordered chain of extractors tried until one
// produces enough text. PDF falls back from native text extraction through a
// parsing library down to OCR; DOCX and legacy word-processor formats each
// have a single extractor.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"tailor-backend/internal/shared/telemetry"
)

const (
	// minTextChars is the minimum normalized length for a non-OCR attempt to
	// count as a success.
	minTextChars = 100
	// minOCRChars is the lower bar applied to the OCR last resort.
	minOCRChars = 50
)

// Input is what a single extractor gets to work with. ScratchPath points at a
// temp copy of Data for extractors that only operate on files; it is owned and
// cleaned up by the chain.
type Input struct {
	Data        []byte
	FileName    string
	ScratchPath string
}

// Extractor is one strategy for turning document bytes into text.
type Extractor interface {
	// Name is the method tag persisted on the document when this extractor wins.
	Name() string
	Extract(ctx context.Context, in Input) (string, error)
}

// Result is the outcome of a successful chain run.
type Result struct {
	Text   string
	Method string
}

// Chain dispatches by file extension into a format family and walks that
// family's extractors in order.
type Chain struct {
	pdf    []Extractor
	docx   []Extractor
	legacy []Extractor

	scratchDir string
}

// Option configures a Chain.
type Option func(*Chain)

// WithPDFExtractors replaces the PDF family, in fallback order.
func WithPDFExtractors(exs ...Extractor) Option {
	return func(c *Chain) { c.pdf = exs }
}

// WithDOCXExtractors replaces the DOCX family.
func WithDOCXExtractors(exs ...Extractor) Option {
	return func(c *Chain) { c.docx = exs }
}

// WithLegacyExtractors replaces the legacy word-processor family.
func WithLegacyExtractors(exs ...Extractor) Option {
	return func(c *Chain) { c.legacy = exs }
}

// WithScratchDir sets the directory used for scratch temp files.
func WithScratchDir(dir string) Option {
	return func(c *Chain) { c.scratchDir = dir }
}

// NewChain builds a chain with the default extractor stacks.
func NewChain(opts ...Option) *Chain {
	c := &Chain{
		pdf:        []Extractor{pdfNative{}, pdfCat{}, pdfOCR{maxPages: ocrMaxPages}},
		docx:       []Extractor{docxXML{}},
		legacy:     []Extractor{docCat{}},
		scratchDir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract runs the family chain for fileName's extension over data and
// returns normalized text plus the winning method tag.
//
// Unknown extensions fail with ErrUnsupportedFormat before any extractor
// runs. Otherwise every attempt's failure is non-fatal until the family is
// exhausted, at which point the last attempt's error is surfaced wrapped in
// an ExtractionError.
func (c *Chain) Extract(ctx context.Context, data []byte, fileName string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	family, isPDFFamily := c.familyFor(ext)
	if family == nil {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	scratch, err := c.writeScratch(data, ext)
	if err != nil {
		return Result{}, fmt.Errorf("write scratch file: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(scratch); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			telemetry.Warn("scratch file cleanup failed", zap.String("path", scratch), zap.Error(rmErr))
		}
	}()

	in := Input{Data: data, FileName: fileName, ScratchPath: scratch}

	var lastErr error
	var lastMethod string
	for i, ex := range family {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		lastMethod = ex.Name()
		isLast := i == len(family)-1

		raw, err := ex.Extract(ctx, in)
		if err != nil {
			lastErr = err
			continue
		}

		// PDF attempts must clear minTextChars to stop the fallback walk,
		// except OCR as the final resort which only needs minOCRChars.
		// DOCX and legacy formats just need non-empty output.
		text := Normalize(raw)
		min := 1
		if isPDFFamily {
			min = minTextChars
			if isLast {
				min = minOCRChars
			}
		}
		if len(text) >= min {
			return Result{Text: text, Method: ex.Name()}, nil
		}
		lastErr = fmt.Errorf("%s produced %d chars, need %d", ex.Name(), len(text), min)
	}

	return Result{}, &ExtractionError{Method: lastMethod, Err: lastErr}
}

// familyFor maps an extension onto its extractor family. The second return
// reports whether this is the PDF family, whose attempts carry length
// thresholds rather than the plain non-empty check.
func (c *Chain) familyFor(ext string) ([]Extractor, bool) {
	switch ext {
	case ".pdf":
		return c.pdf, true
	case ".docx":
		return c.docx, false
	case ".doc", ".rtf":
		return c.legacy, false
	default:
		return nil, false
	}
}

func (c *Chain) writeScratch(data []byte, ext string) (string, error) {
	f, err := os.CreateTemp(c.scratchDir, "tailor-extract-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
