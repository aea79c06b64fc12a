package entity

import "time"

// DocMeta is one manifest entry of a user's document store.
type DocMeta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Document is a saved report. Body is editor HTML.
type Document struct {
	DocMeta
	Topic               string   `json:"topic"`
	Outline             []string `json:"outline"`
	Body                string   `json:"body"`
	ReferenceText       string   `json:"referenceText,omitempty"`
	KnowledgeDatasetIDs []string `json:"knowledgeDatasetIds,omitempty"`
}

type SaveDocumentRequest struct {
	Title               string     `json:"title"`
	Topic               string     `json:"topic"`
	Outline             []string   `json:"outline"`
	Body                string     `json:"body"`
	ReferenceText       *string    `json:"referenceText,omitempty"`
	KnowledgeDatasetIDs StringList `json:"knowledgeDatasetIds,omitempty"`
}

type ListDocumentsResponse struct {
	Docs []DocMeta `json:"docs"`
}

type ResultFormat string

const (
	FormatMarkdown ResultFormat = "markdown"
	FormatDOCX     ResultFormat = "docx"
	FormatPDF      ResultFormat = "pdf"
)

func (f ResultFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatDOCX, FormatPDF:
		return true
	default:
		return false
	}
}

type ExportRequest struct {
	HTML string `json:"html"`
}
