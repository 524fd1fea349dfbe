// Package pdftest builds small, valid PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Build returns a PDF with one page per entry in pages. Each page shows its
// text in Helvetica with WinAnsiEncoding. An empty entry yields a page with
// no text.
func Build(pages ...string) []byte {
	const (
		catalogID = 1
		pagesID   = 2
		fontID    = 3
	)
	objects := map[int]string{
		catalogID: fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesID),
		fontID:    "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	kids := make([]string, 0, len(pages))
	nextID := fontID + 1
	for _, text := range pages {
		pageID, contentID := nextID, nextID+1
		nextID += 2

		var stream string
		if text != "" {
			stream = fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", escape(text))
		}
		objects[pageID] = fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			pagesID, fontID, contentID,
		)
		objects[contentID] = fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream)
		kids = append(kids, fmt.Sprintf("%d 0 R", pageID))
	}
	objects[pagesID] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, nextID)
	for id := 1; id < nextID; id++ {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, objects[id])
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", nextID)
	buf.WriteString("0000000000 65535 f \n")
	for id := 1; id < nextID; id++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[id])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", nextID, catalogID, xref)
	return buf.Bytes()
}

func escape(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(text)
}
