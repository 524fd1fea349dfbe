package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/core/ports"
)

// DefaultSchemaURL points at the LinkML datasheets-for-datasets schema.
const DefaultSchemaURL = "https://raw.githubusercontent.com/monarch-initiative/ontogpt/main/src/ontogpt/templates/data_sheets_schema.yaml"

type SchemaLoaderUseCase struct {
	fetcher    ports.Fetcher
	defaultURL string
}

func NewSchemaLoaderUseCase(fetcher ports.Fetcher, defaultURL string) *SchemaLoaderUseCase {
	if strings.TrimSpace(defaultURL) == "" {
		defaultURL = DefaultSchemaURL
	}
	return &SchemaLoaderUseCase{
		fetcher:    fetcher,
		defaultURL: defaultURL,
	}
}

// Load returns the schema text verbatim. An empty url selects the configured default.
func (uc *SchemaLoaderUseCase) Load(ctx context.Context, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		url = uc.defaultURL
	}

	res, err := uc.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	text := string(res.Body)
	if strings.TrimSpace(text) == "" {
		return "", domain.WrapError(domain.ErrMalformedData, "load schema", fmt.Errorf("empty schema returned from %s", url))
	}

	var node yaml.Node
	if err := yaml.Unmarshal(res.Body, &node); err != nil {
		return "", domain.WrapError(domain.ErrMalformedData, "load schema", fmt.Errorf("parse schema yaml: %w", err))
	}
	if node.Kind != yaml.DocumentNode || len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
		return "", domain.WrapError(domain.ErrMalformedData, "load schema", errors.New("schema is not a yaml mapping"))
	}
	return text, nil
}
