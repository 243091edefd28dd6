package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	opensearchgo "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// Client wraps an OpenSearch cluster used as the log and audit store.
type Client struct {
	os *opensearchgo.Client
}

// Error is the generic failure kind for OpenSearch operations.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("opensearch: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func opErr(op string, err error) error { return &Error{Op: op, Err: err} }

// NewClient connects to a cluster with basic auth. Certificate checks are
// skipped so the self-signed local stack works out of the box.
func NewClient(url, username, password string) (*Client, error) {
	cli, err := opensearchgo.NewClient(opensearchgo.Config{
		Addresses: []string{url},
		Username:  username,
		Password:  password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, opErr("create client", err)
	}
	return &Client{os: cli}, nil
}

// LogEntry is a single log document.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Service   string         `json:"service"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// SearchOptions filter a log search. Zero values mean "no filter".
type SearchOptions struct {
	Service   string
	Level     string
	Text      string
	Since     time.Time
	Until     time.Time
	Size      int
	Ascending bool
}

// IndexStats summarizes one index.
type IndexStats struct {
	Docs        int64 `json:"docs"`
	DeletedDocs int64 `json:"deleted_docs"`
	SizeBytes   int64 `json:"size_bytes"`
}

// defaultLogMappings is applied when an index is created without explicit
// mappings.
var defaultLogMappings = map[string]any{
	"properties": map[string]any{
		"timestamp": map[string]any{"type": "date"},
		"level":     map[string]any{"type": "keyword"},
		"service":   map[string]any{"type": "keyword"},
		"message":   map[string]any{"type": "text"},
		"metadata":  map[string]any{"type": "object"},
	},
}

// CreateIndex creates an index. Nil mappings fall back to the log document
// mappings; nil settings are omitted.
func (c *Client) CreateIndex(ctx context.Context, name string, mappings, settings map[string]any) error {
	if mappings == nil {
		mappings = defaultLogMappings
	}
	body := map[string]any{"mappings": mappings}
	if settings != nil {
		body["settings"] = settings
	}

	reader, err := jsonBody(body)
	if err != nil {
		return opErr(fmt.Sprintf("create index %s", name), err)
	}
	req := opensearchapi.IndicesCreateRequest{Index: name, Body: reader}
	return c.do(ctx, fmt.Sprintf("create index %s", name), req, nil)
}

// DeleteIndex removes an index and its documents.
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	req := opensearchapi.IndicesDeleteRequest{Index: []string{name}}
	return c.do(ctx, fmt.Sprintf("delete index %s", name), req, nil)
}

// WriteLog indexes a single log entry. A zero timestamp becomes the
// current time and the level is uppercased.
func (c *Client) WriteLog(ctx context.Context, index string, entry LogEntry) error {
	doc := normalizeEntry(entry)
	reader, err := jsonBody(doc)
	if err != nil {
		return opErr(fmt.Sprintf("write log to %s", index), err)
	}
	req := opensearchapi.IndexRequest{Index: index, Body: reader}
	return c.do(ctx, fmt.Sprintf("write log to %s", index), req, nil)
}

// WriteDocument indexes an arbitrary document under an explicit id and
// refreshes the index so it is immediately searchable.
func (c *Client) WriteDocument(ctx context.Context, index, id string, doc any) error {
	reader, err := jsonBody(doc)
	if err != nil {
		return opErr(fmt.Sprintf("write document to %s", index), err)
	}
	req := opensearchapi.IndexRequest{Index: index, DocumentID: id, Body: reader, Refresh: "true"}
	return c.do(ctx, fmt.Sprintf("write document to %s", index), req, nil)
}

// BulkWriteLogs indexes log entries in one bulk request and refreshes the
// index so they are immediately searchable.
func (c *Client) BulkWriteLogs(ctx context.Context, index string, entries []LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, entry := range entries {
		if err := enc.Encode(map[string]any{"index": map[string]any{"_index": index}}); err != nil {
			return opErr(fmt.Sprintf("bulk write to %s", index), err)
		}
		if err := enc.Encode(normalizeEntry(entry)); err != nil {
			return opErr(fmt.Sprintf("bulk write to %s", index), err)
		}
	}

	req := opensearchapi.BulkRequest{Body: &buf, Refresh: "true"}
	return c.do(ctx, fmt.Sprintf("bulk write to %s", index), req, nil)
}

// SearchLogs queries an index with the given filters, newest first unless
// Ascending is set. Size defaults to 100.
func (c *Client) SearchLogs(ctx context.Context, index string, opts SearchOptions) ([]LogEntry, error) {
	size := opts.Size
	if size <= 0 {
		size = 100
	}
	order := "desc"
	if opts.Ascending {
		order = "asc"
	}

	body := map[string]any{
		"query": buildQuery(opts),
		"size":  size,
		"sort":  []any{map[string]any{"timestamp": map[string]any{"order": order}}},
	}
	reader, err := jsonBody(body)
	if err != nil {
		return nil, opErr(fmt.Sprintf("search %s", index), err)
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source LogEntry `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	req := opensearchapi.SearchRequest{Index: []string{index}, Body: reader}
	if err := c.do(ctx, fmt.Sprintf("search %s", index), req, &result); err != nil {
		return nil, err
	}

	entries := make([]LogEntry, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		entries = append(entries, hit.Source)
	}
	return entries, nil
}

// DeleteOldLogs removes documents older than the cutoff and reports how
// many were deleted.
func (c *Client) DeleteOldLogs(ctx context.Context, index string, olderThan time.Time) (int64, error) {
	body := map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				"timestamp": map[string]any{"lt": olderThan.UTC().Format(time.RFC3339)},
			},
		},
	}
	reader, err := jsonBody(body)
	if err != nil {
		return 0, opErr(fmt.Sprintf("delete old logs in %s", index), err)
	}

	var result struct {
		Deleted int64 `json:"deleted"`
	}
	req := opensearchapi.DeleteByQueryRequest{Index: []string{index}, Body: reader}
	if err := c.do(ctx, fmt.Sprintf("delete old logs in %s", index), req, &result); err != nil {
		return 0, err
	}
	return result.Deleted, nil
}

// Stats returns document and storage counters of an index.
func (c *Client) Stats(ctx context.Context, index string) (*IndexStats, error) {
	var result struct {
		All struct {
			Primaries struct {
				Docs struct {
					Count   int64 `json:"count"`
					Deleted int64 `json:"deleted"`
				} `json:"docs"`
				Store struct {
					SizeInBytes int64 `json:"size_in_bytes"`
				} `json:"store"`
			} `json:"primaries"`
		} `json:"_all"`
	}
	req := opensearchapi.IndicesStatsRequest{Index: []string{index}}
	if err := c.do(ctx, fmt.Sprintf("get stats of %s", index), req, &result); err != nil {
		return nil, err
	}
	return &IndexStats{
		Docs:        result.All.Primaries.Docs.Count,
		DeletedDocs: result.All.Primaries.Docs.Deleted,
		SizeBytes:   result.All.Primaries.Store.SizeInBytes,
	}, nil
}

// PutIndexTemplate registers a composable index template for the given
// patterns.
func (c *Client) PutIndexTemplate(ctx context.Context, name string, patterns []string, mappings, settings map[string]any) error {
	if mappings == nil {
		mappings = defaultLogMappings
	}
	tmpl := map[string]any{"mappings": mappings}
	if settings != nil {
		tmpl["settings"] = settings
	}
	body := map[string]any{
		"index_patterns": patterns,
		"template":       tmpl,
	}

	reader, err := jsonBody(body)
	if err != nil {
		return opErr(fmt.Sprintf("put template %s", name), err)
	}
	req := opensearchapi.IndicesPutIndexTemplateRequest{Name: name, Body: reader}
	return c.do(ctx, fmt.Sprintf("put template %s", name), req, nil)
}

type requester interface {
	Do(ctx context.Context, transport opensearchapi.Transport) (*opensearchapi.Response, error)
}

// do executes a request, surfaces HTTP-level errors, and decodes the
// response into out when given.
func (c *Client) do(ctx context.Context, op string, req requester, out any) error {
	res, err := req.Do(ctx, c.os)
	if err != nil {
		return opErr(op, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return opErr(op, fmt.Errorf("%s: %s", res.Status(), strings.TrimSpace(string(raw))))
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return opErr(op, err)
		}
	}
	return nil
}

func buildQuery(opts SearchOptions) map[string]any {
	var must []any
	if opts.Service != "" {
		must = append(must, map[string]any{"term": map[string]any{"service": opts.Service}})
	}
	if opts.Level != "" {
		must = append(must, map[string]any{"term": map[string]any{"level": strings.ToUpper(opts.Level)}})
	}
	if opts.Text != "" {
		must = append(must, map[string]any{"match": map[string]any{"message": opts.Text}})
	}
	if !opts.Since.IsZero() || !opts.Until.IsZero() {
		timeRange := map[string]any{}
		if !opts.Since.IsZero() {
			timeRange["gte"] = opts.Since.UTC().Format(time.RFC3339)
		}
		if !opts.Until.IsZero() {
			timeRange["lte"] = opts.Until.UTC().Format(time.RFC3339)
		}
		must = append(must, map[string]any{"range": map[string]any{"timestamp": timeRange}})
	}

	if len(must) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{"bool": map[string]any{"must": must}}
}

func normalizeEntry(entry LogEntry) LogEntry {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.Level = strings.ToUpper(entry.Level)
	return entry
}

func jsonBody(v any) (io.Reader, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return &buf, nil
}
