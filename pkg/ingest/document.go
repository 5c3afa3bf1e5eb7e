// Package ingest turns heterogeneous source documents into embedded,
// self-describing chunks ready for the vector index.
package ingest

import "strings"

// Kind tags the document variants the pipeline understands.
type Kind string

const (
	// KindLead is a discovery lead produced by the lead database.
	KindLead Kind = "lead"

	// KindPaper is a research paper record.
	KindPaper Kind = "paper"

	// KindSearch is a stored search-history record.
	KindSearch Kind = "search"
)

// SourceDocument is the external unit of knowledge handed to the pipeline.
// It is produced and owned by collaborator subsystems; the pipeline only
// reads it. Missing fields are empty strings.
type SourceDocument struct {
	// ID is the stable external identifier assigned by the producer.
	ID string `json:"id"`

	// Kind selects which text fields are semantically significant.
	Kind Kind `json:"kind"`

	// Lead fields
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Summary     string `json:"summary,omitempty"`

	// Paper fields (Title shared with leads)
	Authors  string `json:"authors,omitempty"`
	Abstract string `json:"abstract,omitempty"`
	Body     string `json:"body,omitempty"`

	// Search-history fields
	Query string `json:"query,omitempty"`

	// Provenance
	Source string `json:"source,omitempty"`
	URL    string `json:"url,omitempty"`

	// Meta carries genuinely open-ended producer fields.
	Meta map[string]string `json:"meta,omitempty"`
}

// CombinedText concatenates the document's significant text fields in a
// fixed per-kind order, separated by blank lines. Returns "" when every
// field is empty.
func (d *SourceDocument) CombinedText() string {
	var fields []string

	switch d.Kind {
	case KindPaper:
		fields = []string{d.Title, d.Authors, d.Abstract, d.Body}
	case KindSearch:
		fields = []string{d.Query, d.Description, d.Summary}
	default: // KindLead and untagged documents
		fields = []string{d.Title, d.Description, d.Summary}
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}

	return strings.Join(parts, "\n\n")
}

// Metadata builds the chunk metadata copied onto every chunk of this
// document, so a stored chunk is self-describing.
func (d *SourceDocument) Metadata() map[string]string {
	m := map[string]string{
		"document_id": d.ID,
		"type":        string(d.kind()),
	}

	if d.Title != "" {
		m["title"] = d.Title
	}
	if d.Source != "" {
		m["source"] = d.Source
	}
	if d.URL != "" {
		m["url"] = d.URL
	}

	for k, v := range d.Meta {
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}

	return m
}

func (d *SourceDocument) kind() Kind {
	if d.Kind == "" {
		return KindLead
	}
	return d.Kind
}
