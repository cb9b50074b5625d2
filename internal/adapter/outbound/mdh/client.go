// Package mdh implements the outbound adapter (C7) that speaks to the
// remote master-data hub: a JSON catalog and an XML record-query API
// behind HTTP basic auth.
package mdh

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/audit"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/mdh"
	"github.com/boomi-gateway/datahub-gateway/pkg/mdhxml"
)

// maxResponseBodySize bounds how much of a hub response we will buffer,
// protecting against an upstream that sends an unbounded body.
const maxResponseBodySize = 10 * 1024 * 1024 // 10MB

const modelCacheTTL = 5 * time.Minute

// Config holds the adapter's connection and credential settings. Query
// credentials default to the catalog credentials when left unset, since
// most deployments use a single service account for both.
type Config struct {
	BaseURL    string
	UniverseID string

	CatalogUsername string
	CatalogPassword string

	QueryUsername string
	QueryPassword string

	Timeout time.Duration
}

func (c Config) queryCredentials() (string, string) {
	if c.QueryUsername == "" && c.QueryPassword == "" {
		return c.CatalogUsername, c.CatalogPassword
	}
	return c.QueryUsername, c.QueryPassword
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying http.Client (for tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client is the concrete mdh.Client implementation.
type Client struct {
	cfg        Config
	httpClient *http.Client
	audit      audit.Sink
	logger     *slog.Logger

	mu         sync.Mutex
	modelCache map[string]cachedModel
}

type cachedModel struct {
	model     mdh.ModelDescriptor
	expiresAt time.Time
}

// NewClient constructs a Client. auditSink may be nil, in which case
// unknown-filter-field drops are silently discarded rather than logged.
func NewClient(cfg Config, auditSink audit.Sink, logger *slog.Logger, opts ...ClientOption) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		audit:      auditSink,
		logger:     logger,
		modelCache: make(map[string]cachedModel),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// --- Catalog -----------------------------------------------------------

type modelJSON struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	PublicationStatus string      `json:"publicationStatus"`
	LatestVersion     int         `json:"latestVersion"`
	Fields            []fieldJSON `json:"fields"`
	Sources           []string    `json:"sources"`
	MatchRules        []string    `json:"matchRules"`
	RecordTitleFields []string    `json:"recordTitleFields"`
}

type fieldJSON struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Required   bool   `json:"required"`
	Repeatable bool   `json:"repeatable"`
	UniqueID   bool   `json:"uniqueId"`
}

func (f fieldJSON) toDescriptor() mdh.FieldDescriptor {
	return mdh.FieldDescriptor{
		Name:         strings.ToUpper(f.Name),
		OriginalName: f.Name,
		Type:         f.Type,
		Required:     f.Required,
		Repeatable:   f.Repeatable,
		UniqueID:     f.UniqueID,
	}
}

func (m modelJSON) toDescriptor() mdh.ModelDescriptor {
	fields := make([]mdh.FieldDescriptor, len(m.Fields))
	for i, f := range m.Fields {
		fields[i] = f.toDescriptor()
	}
	status := mdh.PublicationStatus(m.PublicationStatus)
	if status == "" {
		status = mdh.PublicationDraft
	}
	return mdh.ModelDescriptor{
		ID:                m.ID,
		Name:              m.Name,
		PublicationStatus: status,
		LatestVersion:     m.LatestVersion,
		Fields:            fields,
		Sources:           m.Sources,
		MatchRules:        m.MatchRules,
		RecordTitleFields: m.RecordTitleFields,
	}
}

// GetAllModels returns every model in the configured universe's catalog.
func (c *Client) GetAllModels(ctx context.Context) ([]mdh.ModelDescriptor, error) {
	var payload struct {
		Models []modelJSON `json:"models"`
	}
	if err := c.getCatalogJSON(ctx, fmt.Sprintf("/universes/%s/models", url.PathEscape(c.cfg.UniverseID)), &payload); err != nil {
		return nil, err
	}

	models := make([]mdh.ModelDescriptor, len(payload.Models))
	for i, m := range payload.Models {
		models[i] = m.toDescriptor()
	}
	return models, nil
}

// GetModelByID returns a single model's normalized descriptor, using a
// short-lived cache so repeated field-mapping lookups within one pipeline
// run don't each round-trip to the hub.
func (c *Client) GetModelByID(ctx context.Context, id string) (mdh.ModelDescriptor, error) {
	if cached, ok := c.cachedModel(id); ok {
		return cached, nil
	}

	var payload modelJSON
	if err := c.getCatalogJSON(ctx, fmt.Sprintf("/universes/%s/models/%s", url.PathEscape(c.cfg.UniverseID), url.PathEscape(id)), &payload); err != nil {
		return mdh.ModelDescriptor{}, err
	}

	model := payload.toDescriptor()
	c.storeCachedModel(id, model)
	return model, nil
}

// GetModelFields returns just the field descriptors for a model.
func (c *Client) GetModelFields(ctx context.Context, id string) ([]mdh.FieldDescriptor, error) {
	model, err := c.GetModelByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.Fields, nil
}

func (c *Client) cachedModel(id string) (mdh.ModelDescriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.modelCache[id]
	if !ok || time.Now().After(entry.expiresAt) {
		return mdh.ModelDescriptor{}, false
	}
	return entry.model, true
}

func (c *Client) storeCachedModel(id string, model mdh.ModelDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modelCache[id] = cachedModel{model: model, expiresAt: time.Now().Add(modelCacheTTL)}
}

func (c *Client) getCatalogJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("mdh: building catalog request: %w", err)
	}
	req.SetBasicAuth(c.cfg.CatalogUsername, c.cfg.CatalogPassword)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mdh: catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("mdh: reading catalog response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mdh: catalog request to %s returned %d: %s", path, resp.StatusCode, truncate(body, 256))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("mdh: decoding catalog response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// --- Records -------------------------------------------------------------

// QueryRecords validates and executes a canonical query against the hub's
// record-query endpoint. Unknown filter fields are dropped (and
// audited) rather than rejected outright, so a stale field mapping
// degrades the query instead of failing the whole request.
func (c *Client) QueryRecords(ctx context.Context, query mdh.CanonicalQuery) (mdh.QueryResult, error) {
	model, err := c.GetModelByID(ctx, query.ModelID)
	if err != nil {
		return mdh.QueryResult{}, fmt.Errorf("mdh: resolving model %q for query: %w", query.ModelID, err)
	}

	limit := mdh.ClampLimit(query.Limit)

	fields := make([]string, len(query.Fields))
	for i, f := range query.Fields {
		fields[i] = strings.ToUpper(f)
	}

	filters := make([]mdhxml.FilterClause, 0, len(query.Filters))
	for _, f := range query.Filters {
		fieldID := strings.ToUpper(f.FieldID)
		if _, ok := model.FieldByName(fieldID); !ok {
			c.dropUnknownFilterField(ctx, query.ModelID, fieldID)
			continue
		}
		filters = append(filters, mdhxml.FilterClause{
			FieldID:  fieldID,
			Operator: string(f.Operator),
			Value:    f.Value,
		})
	}

	body, err := mdhxml.BuildRecordQueryRequest(fields, filters, limit, query.OffsetToken)
	if err != nil {
		return mdh.QueryResult{}, fmt.Errorf("mdh: building query request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/universes/%s/records/query?repositoryId=%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.UniverseID), url.QueryEscape(query.ModelID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return mdh.QueryResult{}, fmt.Errorf("mdh: building query http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")
	queryUser, queryPass := c.cfg.queryCredentials()
	req.SetBasicAuth(queryUser, queryPass)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mdh.QueryResult{}, fmt.Errorf("mdh: query request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return mdh.QueryResult{}, fmt.Errorf("mdh: reading query response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Never retried: the query node's retry budget only covers
		// transient transport errors.
		return mdh.QueryResult{}, &mdh.QueryError{
			Message:         "mdh: query rejected with 401 unauthorized",
			StatusCode:      http.StatusUnauthorized,
			Troubleshooting: mdh.UnauthorizedTroubleshooting(),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return mdh.QueryResult{}, &mdh.QueryError{
			Message:    fmt.Sprintf("mdh: query returned %d: %s", resp.StatusCode, truncate(respBody, 256)),
			StatusCode: resp.StatusCode,
		}
	}

	decoded, err := mdhxml.DecodeRecordQueryResponse(bytes.NewReader(respBody))
	if err != nil {
		return mdh.QueryResult{}, fmt.Errorf("mdh: decoding query response: %w", err)
	}

	records := make([]mdh.Record, len(decoded.Records))
	for i, r := range decoded.Records {
		rec := make(mdh.Record, len(r))
		for k, v := range r {
			rec[k] = v
		}
		records[i] = rec
	}

	return mdh.QueryResult{
		Records:         records,
		TotalReturned:   decoded.ResultCount,
		TotalCount:      decoded.TotalCount,
		HasMore:         decoded.HasMore,
		NextOffsetToken: decoded.OffsetToken,
	}, nil
}

func (c *Client) dropUnknownFilterField(ctx context.Context, modelID, fieldID string) {
	if c.logger != nil {
		c.logger.Warn("dropping unknown filter field", "model_id", modelID, "field_id", fieldID)
	}
	if c.audit == nil {
		return
	}
	event := audit.AuditEvent{
		Timestamp: time.Now(),
		EventType: audit.EventTypeUnknownFilterField,
		Severity:  audit.SeverityWarning,
		Success:   false,
		Details: map[string]any{
			"model_id": modelID,
			"field_id": fieldID,
		},
	}
	if err := c.audit.Emit(ctx, event); err != nil && c.logger != nil {
		c.logger.Error("failed to audit unknown filter field drop", "error", err)
	}
}

var _ mdh.Client = (*Client)(nil)
