// Package html reads HTML markup. Markup is returned untouched apart from
// charset conversion; the downstream consumer tolerates tags.
package html

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/core/ports"
)

type Extractor struct {
	files ports.LocalFiles
}

func NewExtractor(files ports.LocalFiles) *Extractor {
	return &Extractor{files: files}
}

func (e *Extractor) Extract(ctx context.Context, src domain.Source) (string, error) {
	if !src.IsLocal() {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract html", fmt.Errorf("remote html is handled as a web page: %s", src.Ref))
	}

	raw, err := e.files.ReadFile(ctx, src.Ref)
	if err != nil {
		return "", err
	}
	return Decode(raw, "text/html")
}

// Decode converts markup to UTF-8 using the charset declared in contentType
// or in a <meta> tag, falling back to sniffing. Blank markup is malformed.
func Decode(body []byte, contentType string) (string, error) {
	text, err := decode(body, contentType)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.WrapError(domain.ErrMalformedData, "decode html", errors.New("no content"))
	}
	return text, nil
}

func decode(body []byte, contentType string) (string, error) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || (!certain && utf8.Valid(body)) {
		return strings.ToValidUTF8(string(body), "\uFFFD"), nil
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", domain.WrapError(domain.ErrUnreadableSource, "decode html", fmt.Errorf("charset %s: %w", name, err))
	}
	return string(decoded), nil
}
