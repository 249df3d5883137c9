// Package model defines the shared domain types for the fedscope pipeline.
package model

import "fmt"

// Metadata carries the provenance of a transcript page. It is produced by
// the ETL step that extracts text from the press-conference PDFs and must
// survive chunking verbatim so every chunk stays citable.
type Metadata struct {
	// CreationDate is the PDF creation date in YYYY-MM-DD form.
	CreationDate string `json:"creation_date"`

	// Page is the zero-based page index within the source PDF.
	Page int `json:"page"`

	// TotalPages is the page count of the source PDF.
	TotalPages int `json:"total_pages"`
}

// Document is one page of a cleaned press-conference transcript.
// Documents are immutable once handed to a chunking strategy.
type Document struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Chunk is a retrievable span of text derived from a single source document.
// It inherits the document's metadata so the model can cite it.
type Chunk struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// CitationHeader renders the citation tag the answer model is instructed to
// emit for every assertion, e.g. "[Date: 2021-11-03 | Page: 4 of 23]".
func (c Chunk) CitationHeader() string {
	return fmt.Sprintf("[Date: %s | Page: %d of %d]", c.Metadata.CreationDate, c.Metadata.Page, c.Metadata.TotalPages)
}

// Analysis is the user-facing result of one pipeline invocation.
type Analysis struct {
	// Sentiment is one of Hawkish, Neutral or Dovish.
	Sentiment string `json:"sentiment"`

	// Answer is the generated, citation-backed answer text.
	Answer string `json:"answer"`

	// Evidence holds the direct quotes and their citations.
	Evidence string `json:"evidence"`
}
