package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
	"github.com/lu4p/cat"
)

// pdfNative is the fast path: the whole-document plain text stream from
// ledongthuc/pdf. Works for most digitally authored resumes.
type pdfNative struct{}

func (pdfNative) Name() string { return "pdf_native" }

func (pdfNative) Extract(ctx context.Context, in Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	reader, err := pdf.NewReader(bytes.NewReader(in.Data), int64(len(in.Data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plain text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf plain text: %w", err)
	}
	return buf.String(), nil
}

// pdfCat is the second attempt: lu4p/cat's parser, which copes with some
// layouts the native stream walk mangles. It reads from the scratch file.
type pdfCat struct{}

func (pdfCat) Name() string { return "pdf_cat" }

func (pdfCat) Extract(ctx context.Context, in Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := cat.File(in.ScratchPath)
	if err != nil {
		return "", fmt.Errorf("cat pdf: %w", err)
	}
	return text, nil
}
