// Package webpage resolves remote references whose format is only known once
// the response is in hand.
package webpage

import (
	"bytes"
	"context"
	"strings"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/core/ports"
	"github.com/kirillkom/d4d-ingest/internal/infrastructure/extractor/html"
	"github.com/kirillkom/d4d-ingest/internal/infrastructure/extractor/pdf"
)

var pdfMagic = []byte("%PDF-")

type Extractor struct {
	fetcher ports.Fetcher
}

func NewExtractor(fetcher ports.Fetcher) *Extractor {
	return &Extractor{fetcher: fetcher}
}

func (e *Extractor) Extract(ctx context.Context, src domain.Source) (string, error) {
	res, err := e.fetcher.Fetch(ctx, src.Ref)
	if err != nil {
		return "", err
	}
	if IsPDF(res) {
		return pdf.DecodeText(res.Body)
	}
	return html.Decode(res.Body, res.ContentType)
}

// IsPDF sniffs the content type and the leading bytes of a response.
func IsPDF(res *domain.Resource) bool {
	if strings.Contains(strings.ToLower(res.ContentType), "pdf") {
		return true
	}
	return bytes.HasPrefix(res.Body, pdfMagic)
}
