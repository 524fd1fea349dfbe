package jsondoc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/core/ports"
)

const indent = "  "

// Extractor pretty-prints local JSON files. Key order and number literals are
// kept as written; only whitespace changes.
type Extractor struct {
	files ports.LocalFiles
}

func NewExtractor(files ports.LocalFiles) *Extractor {
	return &Extractor{files: files}
}

func (e *Extractor) Extract(ctx context.Context, src domain.Source) (string, error) {
	if !src.IsLocal() {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract json", fmt.Errorf("remote json is not supported: %s", src.Ref))
	}

	raw, err := e.files.ReadFile(ctx, src.Ref)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrUnreadableSource, "decode json", fmt.Errorf("%s is not valid utf-8", src.Ref))
	}
	return Pretty(raw)
}

// Pretty validates raw as a single JSON value and re-indents it.
func Pretty(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		var syntaxErr *json.SyntaxError
		err := json.Unmarshal(trimmed, new(json.RawMessage))
		if errors.As(err, &syntaxErr) {
			err = fmt.Errorf("invalid json at offset %d: %w", syntaxErr.Offset, syntaxErr)
		} else if err == nil {
			err = errors.New("invalid json")
		}
		return "", domain.WrapError(domain.ErrMalformedData, "parse json", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, trimmed, "", indent); err != nil {
		return "", domain.WrapError(domain.ErrMalformedData, "indent json", err)
	}
	return out.String(), nil
}
