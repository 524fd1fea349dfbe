package usecase

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/core/ports"
)

var localFormats = map[string]domain.FormatKind{
	".pdf":  domain.FormatPDF,
	".html": domain.FormatHTML,
	".htm":  domain.FormatHTML,
	".json": domain.FormatJSON,
	".txt":  domain.FormatPlainText,
	".md":   domain.FormatPlainText,
}

// SourceClassifierUseCase picks a format from the reference string and an
// existence check. It never opens files or touches the network.
type SourceClassifierUseCase struct {
	files ports.LocalFiles
}

func NewSourceClassifierUseCase(files ports.LocalFiles) *SourceClassifierUseCase {
	return &SourceClassifierUseCase{files: files}
}

func (uc *SourceClassifierUseCase) Classify(ref string) (domain.Source, error) {
	if ref == "" {
		return domain.Source{}, domain.WrapError(domain.ErrUnsupportedFormat, "classify source", errors.New("empty source reference"))
	}

	if uc.files.Exists(ref) {
		ext := strings.ToLower(filepath.Ext(ref))
		format, ok := localFormats[ext]
		if !ok {
			return domain.Source{}, domain.WrapError(
				domain.ErrUnsupportedFormat,
				"classify source",
				fmt.Errorf("unsupported file type %q for %s", ext, ref),
			)
		}
		return domain.Source{Ref: ref, Location: domain.LocationLocal, Format: format}, nil
	}

	return domain.Source{Ref: ref, Location: domain.LocationRemote, Format: remoteFormat(ref)}, nil
}

func remoteFormat(ref string) domain.FormatKind {
	path := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		path = u.Path
	}
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return domain.FormatPDF
	}
	return domain.FormatWebPage
}
