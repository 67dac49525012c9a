// Package qdrant adapts the external vector index. The index is a black
// box here: this package only issues pre-filtered similarity queries and
// decodes payloads back into chunks; indexing is owned by the ingestion
// pipeline.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
)

// Client searches one collection (one category partition). Construct it
// through the Cache so partitions load on first use.
type Client struct {
	baseURL    string
	collection string
	cohort     string
	httpClient *http.Client
}

func NewClient(baseURL, collection, cohort string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		cohort:     cohort,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Search(
	ctx context.Context,
	queryVector []float32,
	filter domain.QueryFilter,
	k int,
) ([]domain.Candidate, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        k,
		"with_payload": true,
	}
	if conditions := buildFilter(filter, c.cohort); len(conditions) > 0 {
		reqBody["filter"] = map[string]any{"must": conditions}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "qdrant search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "qdrant search",
			fmt.Errorf("status %s: %s", resp.Status, strings.TrimSpace(string(msg))))
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.Candidate, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.Candidate{
			Chunk:      chunkFromPayload(r.Payload),
			Similarity: r.Score,
		})
	}
	return out, nil
}

// exists probes the collection so a partition that was never indexed fails
// fast at load time instead of on every query.
func (c *Client) exists(ctx context.Context) error {
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create collection probe: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrRetrievalUnavailable, "qdrant probe", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return domain.WrapError(domain.ErrRetrievalUnavailable, "qdrant probe",
			fmt.Errorf("collection %s: status %s", c.collection, resp.Status))
	}
	return nil
}

func chunkFromPayload(payload map[string]any) domain.Chunk {
	return domain.Chunk{
		Text:            payloadString(payload, "text"),
		URI:             payloadString(payload, "uri"),
		ArticleURI:      payloadString(payload, "articleUri"),
		ClauseURI:       payloadString(payload, "clauseUri"),
		DocumentCode:    payloadString(payload, "documentCode"),
		VersionDate:     payloadString(payload, "versionDate"),
		EffectiveFrom:   payloadString(payload, "effectiveFrom"),
		EffectiveUntil:  payloadString(payload, "effectiveUntil"),
		ContentType:     domain.ContentType(payloadString(payload, "contentType")),
		ArticleNumber:   payloadInt(payload, "articleNumber"),
		ClauseNumber:    payloadInt(payload, "clauseNumber"),
		Program:         payloadString(payload, "program"),
		Cohort:          payloadString(payload, "cohort"),
		SourceFile:      payloadString(payload, "sourceFile"),
		Page:            payloadInt(payload, "page"),
		ContentHash:     payloadString(payload, "contentHash"),
		Overrides:       payloadStrings(payload, "overrides"),
		Cites:           payloadStrings(payload, "cites"),
		HasExceptionFor: payloadStrings(payload, "hasExceptionFor"),
	}
}

func payloadString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func payloadInt(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case int:
		return v
	default:
		return 0
	}
}

func payloadStrings(payload map[string]any, key string) []string {
	raw, ok := payload[key].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
