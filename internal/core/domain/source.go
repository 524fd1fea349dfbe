package domain

// FormatKind is the closed set of source formats the pipeline can normalize.
type FormatKind string

const (
	FormatPDF       FormatKind = "pdf"
	FormatHTML      FormatKind = "html"
	FormatJSON      FormatKind = "json"
	FormatPlainText FormatKind = "plain_text"
	// FormatWebPage is a remote reference whose concrete type is only known
	// once the response has been retrieved.
	FormatWebPage FormatKind = "web_page"
)

// Location tells whether a reference resolved to a local entity or a remote one.
type Location string

const (
	LocationLocal  Location = "local"
	LocationRemote Location = "remote"
)

// Source is a classified SourceReference.
type Source struct {
	Ref      string     `json:"ref"`
	Location Location   `json:"location"`
	Format   FormatKind `json:"format"`
}

func (s Source) IsLocal() bool {
	return s.Location == LocationLocal
}

// NormalizedDocument is the bounded text produced for one source.
type NormalizedDocument struct {
	Text      string     `json:"text"`
	Format    FormatKind `json:"format"`
	Chars     int        `json:"chars"`
	Truncated bool       `json:"truncated"`
}

// Content is the concatenation of several normalized sources, in input order.
type Content struct {
	Text      string            `json:"text"`
	Documents []SourcedDocument `json:"documents"`
}

// SourcedDocument pairs a normalized document with the reference it came from.
type SourcedDocument struct {
	Source string `json:"source"`
	NormalizedDocument
}
