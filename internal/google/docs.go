package google

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/option"
)

// DocsClient wraps the Google Docs API.
type DocsClient struct {
	svc *docs.Service
}

// NewDocsClient builds a Docs client from a credentials file.
func NewDocsClient(ctx context.Context, credentialsFile string) (*DocsClient, error) {
	svc, err := docs.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(docs.DocumentsScope),
	)
	if err != nil {
		return nil, opErr("create docs client", err)
	}
	return &DocsClient{svc: svc}, nil
}

// Document describes a document.
type Document struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Revision string `json:"revision,omitempty"`
	Text     string `json:"text,omitempty"`
	URL      string `json:"url"`
}

// UpdateResult reports a successful document mutation.
type UpdateResult struct {
	DocumentID   string `json:"document_id"`
	Revision     string `json:"revision,omitempty"`
	Replacements int64  `json:"replacements,omitempty"`
}

// CreateDocument creates an empty document.
func (c *DocsClient) CreateDocument(ctx context.Context, title string) (*Document, error) {
	doc, err := c.svc.Documents.Create(&docs.Document{Title: title}).Context(ctx).Do()
	if err != nil {
		return nil, opErr(fmt.Sprintf("create document %q", title), err)
	}
	return &Document{
		ID:    doc.DocumentId,
		Title: doc.Title,
		URL:   docURL(doc.DocumentId),
	}, nil
}

// Document fetches a document with its plain text content.
func (c *DocsClient) Document(ctx context.Context, id string) (*Document, error) {
	doc, err := c.svc.Documents.Get(id).Context(ctx).Do()
	if err != nil {
		return nil, opErr(fmt.Sprintf("get document %s", id), err)
	}
	return &Document{
		ID:       doc.DocumentId,
		Title:    doc.Title,
		Revision: doc.RevisionId,
		Text:     extractText(doc),
		URL:      docURL(doc.DocumentId),
	}, nil
}

// InsertText inserts text at the given index, or at the end of the
// document when index is zero.
func (c *DocsClient) InsertText(ctx context.Context, id, text string, index int64) (*UpdateResult, error) {
	if index <= 0 {
		doc, err := c.svc.Documents.Get(id).Context(ctx).Do()
		if err != nil {
			return nil, opErr(fmt.Sprintf("get document %s", id), err)
		}
		index = endIndex(doc)
	}

	req := &docs.BatchUpdateDocumentRequest{
		Requests: []*docs.Request{{
			InsertText: &docs.InsertTextRequest{
				Location: &docs.Location{Index: index},
				Text:     text,
			},
		}},
	}
	resp, err := c.svc.Documents.BatchUpdate(id, req).Context(ctx).Do()
	if err != nil {
		return nil, opErr(fmt.Sprintf("insert text into %s", id), err)
	}

	result := &UpdateResult{DocumentID: id}
	if resp.WriteControl != nil {
		result.Revision = resp.WriteControl.RequiredRevisionId
	}
	return result, nil
}

// ReplaceText replaces every occurrence of find with replace and reports
// how many occurrences changed.
func (c *DocsClient) ReplaceText(ctx context.Context, id, find, replace string, matchCase bool) (*UpdateResult, error) {
	req := &docs.BatchUpdateDocumentRequest{
		Requests: []*docs.Request{{
			ReplaceAllText: &docs.ReplaceAllTextRequest{
				ContainsText: &docs.SubstringMatchCriteria{
					Text:      find,
					MatchCase: matchCase,
				},
				ReplaceText: replace,
			},
		}},
	}
	resp, err := c.svc.Documents.BatchUpdate(id, req).Context(ctx).Do()
	if err != nil {
		return nil, opErr(fmt.Sprintf("replace text in %s", id), err)
	}

	result := &UpdateResult{DocumentID: id}
	if resp.WriteControl != nil {
		result.Revision = resp.WriteControl.RequiredRevisionId
	}
	if len(resp.Replies) > 0 && resp.Replies[0].ReplaceAllText != nil {
		result.Replacements = resp.Replies[0].ReplaceAllText.OccurrencesChanged
	}
	return result, nil
}

func docURL(id string) string {
	return "https://docs.google.com/document/d/" + id + "/edit"
}

// endIndex returns the index just before the final newline of the body,
// the last position where text can be inserted.
func endIndex(doc *docs.Document) int64 {
	if doc.Body == nil || len(doc.Body.Content) == 0 {
		return 1
	}
	last := doc.Body.Content[len(doc.Body.Content)-1]
	if last.EndIndex <= 1 {
		return 1
	}
	return last.EndIndex - 1
}

// extractText flattens the paragraph text runs of a document body.
func extractText(doc *docs.Document) string {
	if doc.Body == nil {
		return ""
	}
	var sb strings.Builder
	for _, elem := range doc.Body.Content {
		if elem.Paragraph == nil {
			continue
		}
		for _, pe := range elem.Paragraph.Elements {
			if pe.TextRun != nil {
				sb.WriteString(pe.TextRun.Content)
			}
		}
	}
	return sb.String()
}
