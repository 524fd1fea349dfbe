package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/core/ports"
)

// Extractor decodes PDF documents from disk or over the network.
type Extractor struct {
	files   ports.LocalFiles
	fetcher ports.Fetcher
}

func NewExtractor(files ports.LocalFiles, fetcher ports.Fetcher) *Extractor {
	return &Extractor{
		files:   files,
		fetcher: fetcher,
	}
}

func (e *Extractor) Extract(ctx context.Context, src domain.Source) (string, error) {
	data, err := e.load(ctx, src)
	if err != nil {
		return "", err
	}
	return DecodeText(data)
}

func (e *Extractor) load(ctx context.Context, src domain.Source) ([]byte, error) {
	if src.IsLocal() {
		return e.files.ReadFile(ctx, src.Ref)
	}
	res, err := e.fetcher.Fetch(ctx, src.Ref)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// DecodeText returns the plain text of every page in document order. Pages
// are concatenated without separators beyond what the decoder itself emits.
func DecodeText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = domain.WrapError(domain.ErrMalformedData, "decode pdf", fmt.Errorf("decoder panic: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.WrapError(domain.ErrMalformedData, "decode pdf", err)
	}

	var b strings.Builder
	for pageNr := 1; pageNr <= reader.NumPage(); pageNr++ {
		page := reader.Page(pageNr)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", domain.WrapError(domain.ErrMalformedData, "decode pdf", fmt.Errorf("page %d: %w", pageNr, err))
		}
		b.WriteString(pageText)
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", domain.WrapError(domain.ErrMalformedData, "decode pdf", errors.New("no text extracted from pdf"))
	}
	return b.String(), nil
}
