package extract

import (
	"context"
	"fmt"

	"github.com/lu4p/cat"
)

// docCat handles legacy word-processor formats (.doc, .rtf) through lu4p/cat's
// generic file reader. One shot; empty output fails the family.
type docCat struct{}

func (docCat) Name() string { return "doc_cat" }

func (docCat) Extract(ctx context.Context, in Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := cat.File(in.ScratchPath)
	if err != nil {
		return "", fmt.Errorf("cat document: %w", err)
	}
	return text, nil
}
