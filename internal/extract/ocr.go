package extract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

// ocrMaxPages bounds OCR work on pathological uploads. Resumes past this
// length have no useful tail anyway.
const ocrMaxPages = 10

// pdfOCR is the last resort for scanned or image-only PDFs: rasterize pages
// with go-fitz and run them through Tesseract.
type pdfOCR struct {
	maxPages int
}

func (pdfOCR) Name() string { return "pdf_ocr" }

func (o pdfOCR) Extract(ctx context.Context, in Input) (string, error) {
	doc, err := fitz.NewFromMemory(in.Data)
	if err != nil {
		return "", fmt.Errorf("open pdf for ocr: %w", err)
	}
	defer doc.Close()

	client := gosseract.NewClient()
	defer client.Close()

	pages := doc.NumPage()
	if o.maxPages > 0 && pages > o.maxPages {
		pages = o.maxPages
	}

	var out bytes.Buffer
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		img, err := doc.Image(i)
		if err != nil {
			return "", fmt.Errorf("render page %d: %w", i+1, err)
		}
		var encoded bytes.Buffer
		if err := png.Encode(&encoded, img); err != nil {
			return "", fmt.Errorf("encode page %d: %w", i+1, err)
		}
		if err := client.SetImageFromBytes(encoded.Bytes()); err != nil {
			return "", fmt.Errorf("set ocr image page %d: %w", i+1, err)
		}
		text, err := client.Text()
		if err != nil {
			return "", fmt.Errorf("ocr page %d: %w", i+1, err)
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(text)
	}
	return out.String(), nil
}
