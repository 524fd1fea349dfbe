package jsondoc

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/infrastructure/storage/localfs"
)

func TestPrettyIndentsWithTwoSpaces(t *testing.T) {
	got, err := Pretty([]byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("Pretty() error = %v", err)
	}
	if got != "{\n  \"a\": 1\n}" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestPrettyRoundTripsValue(t *testing.T) {
	raw := []byte(`{"name":"iris","rows":150,"tags":["flowers",null,true],"nested":{"z":1.50,"a":"b"}}`)
	got, err := Pretty(raw)
	if err != nil {
		t.Fatalf("Pretty() error = %v", err)
	}

	var want, back any
	if err := json.Unmarshal(raw, &want); err != nil {
		t.Fatalf("unmarshal input: %v", err)
	}
	if err := json.Unmarshal([]byte(got), &back); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if !reflect.DeepEqual(want, back) {
		t.Fatalf("round trip mismatch: %v != %v", want, back)
	}
}

func TestPrettyKeepsKeyOrder(t *testing.T) {
	got, err := Pretty([]byte(`{"z":1,"a":2}`))
	if err != nil {
		t.Fatalf("Pretty() error = %v", err)
	}
	if got != "{\n  \"z\": 1,\n  \"a\": 2\n}" {
		t.Fatalf("key order changed: %q", got)
	}
}

func TestPrettyRejectsMalformedJSON(t *testing.T) {
	for _, raw := range []string{`{"a":`, `{"a":1} {"b":2}`, ``, `{'a':1}`} {
		got, err := Pretty([]byte(raw))
		if !domain.IsKind(err, domain.ErrMalformedData) {
			t.Fatalf("Pretty(%q): expected ErrMalformedData, got %v", raw, err)
		}
		if got != "" {
			t.Fatalf("Pretty(%q): expected no partial output, got %q", raw, got)
		}
	}
}

func TestExtractLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("{\"a\":1}\n"), 0o600); err != nil {
		t.Fatalf("write json: %v", err)
	}

	got, err := NewExtractor(localfs.New("")).Extract(context.Background(), domain.Source{
		Ref:      path,
		Location: domain.LocationLocal,
		Format:   domain.FormatJSON,
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "{\n  \"a\": 1\n}" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestExtractRejectsRemoteJSON(t *testing.T) {
	_, err := NewExtractor(localfs.New("")).Extract(context.Background(), domain.Source{
		Ref:      "https://example.org/data.json",
		Location: domain.LocationRemote,
		Format:   domain.FormatJSON,
	})
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
