package plaintext

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/core/ports"
)

// Extractor returns local .txt and .md files verbatim.
type Extractor struct {
	files ports.LocalFiles
}

func NewExtractor(files ports.LocalFiles) *Extractor {
	return &Extractor{files: files}
}

func (e *Extractor) Extract(ctx context.Context, src domain.Source) (string, error) {
	if !src.IsLocal() {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract plain text", fmt.Errorf("remote plain text is not supported: %s", src.Ref))
	}

	raw, err := e.files.ReadFile(ctx, src.Ref)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrUnreadableSource, "decode plain text", fmt.Errorf("%s is not valid utf-8", src.Ref))
	}
	return string(raw), nil
}
