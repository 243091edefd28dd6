package google

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func newDocsClient(t *testing.T, handler http.HandlerFunc) *DocsClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := docs.NewService(context.Background(),
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return &DocsClient{svc: svc}
}

func newSheetsClient(t *testing.T, handler http.HandlerFunc) *SheetsClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return &SheetsClient{svc: svc}
}

func TestCreateDocument(t *testing.T) {
	client := newDocsClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"documentId":"doc123","title":"Runbook"}`)
	})

	doc, err := client.CreateDocument(context.Background(), "Runbook")
	require.NoError(t, err)
	assert.Equal(t, "doc123", doc.ID)
	assert.Equal(t, "Runbook", doc.Title)
	assert.Equal(t, "https://docs.google.com/document/d/doc123/edit", doc.URL)
}

func TestReplaceText(t *testing.T) {
	client := newDocsClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"documentId":"doc123","replies":[{"replaceAllText":{"occurrencesChanged":3}}]}`)
	})

	result, err := client.ReplaceText(context.Background(), "doc123", "old", "new", true)
	require.NoError(t, err)
	assert.Equal(t, "doc123", result.DocumentID)
	assert.Equal(t, int64(3), result.Replacements)
}

func TestDocsAPIErrorSurfaces(t *testing.T) {
	client := newDocsClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":403,"message":"insufficient permissions"}}`)
	})

	_, err := client.Document(context.Background(), "doc123")
	require.Error(t, err)

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "get document doc123", gerr.Op)
}

func TestEndIndex(t *testing.T) {
	doc := &docs.Document{Body: &docs.Body{Content: []*docs.StructuralElement{
		{EndIndex: 1},
		{EndIndex: 42},
	}}}
	assert.Equal(t, int64(41), endIndex(doc))

	assert.Equal(t, int64(1), endIndex(&docs.Document{}))
	assert.Equal(t, int64(1), endIndex(&docs.Document{Body: &docs.Body{}}))
}

func TestExtractText(t *testing.T) {
	doc := &docs.Document{Body: &docs.Body{Content: []*docs.StructuralElement{
		{Paragraph: &docs.Paragraph{Elements: []*docs.ParagraphElement{
			{TextRun: &docs.TextRun{Content: "Hello "}},
			{TextRun: &docs.TextRun{Content: "world\n"}},
		}}},
		{SectionBreak: &docs.SectionBreak{}},
		{Paragraph: &docs.Paragraph{Elements: []*docs.ParagraphElement{
			{TextRun: &docs.TextRun{Content: "Second line\n"}},
		}}},
	}}}
	assert.Equal(t, "Hello world\nSecond line\n", extractText(doc))
	assert.Empty(t, extractText(&docs.Document{}))
}

func TestSheetsValues(t *testing.T) {
	client := newSheetsClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"range":"Sheet1!A1:B2","values":[["host","port"],["db1",5432]]}`)
	})

	values, err := client.Values(context.Background(), "sheet123", "Sheet1!A1:B2")
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, []string{"host", "port"}, values[0])
	assert.Equal(t, "db1", values[1][0])
	assert.NotEmpty(t, values[1][1])
}

func TestSheetsAppendValues(t *testing.T) {
	client := newSheetsClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"spreadsheetId":"sheet123","updates":{"updatedRange":"Sheet1!A3:B3","updatedRows":1,"updatedColumns":2,"updatedCells":2}}`)
	})

	result, err := client.AppendValues(context.Background(), "sheet123", "Sheet1!A1", [][]string{{"db2", "5433"}})
	require.NoError(t, err)
	assert.Equal(t, "Sheet1!A3:B3", result.UpdatedRange)
	assert.Equal(t, int64(1), result.UpdatedRows)
	assert.Equal(t, int64(2), result.UpdatedCells)
}

func TestRowConversions(t *testing.T) {
	rows := toAnyRows([][]string{{"a", "b"}, {"c"}})
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0][0])

	back := toStringRows([][]any{{"a", 1}, {true}})
	assert.Equal(t, [][]string{{"a", "1"}, {"true"}}, back)
}

func TestErrorFormatting(t *testing.T) {
	underlying := errors.New("googleapi: Error 404: not found")
	err := opErr("get document doc9", underlying)

	assert.EqualError(t, err, "google: get document doc9: googleapi: Error 404: not found")
	assert.ErrorIs(t, err, underlying)
}
