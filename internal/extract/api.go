package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jmorales/etlwatch/internal/config"
	"github.com/jmorales/etlwatch/internal/dataset"
)

// APIExtractor performs one GET per Extract call against a REST endpoint
// returning a JSON array of objects. Retry and backoff belong to the caller.
type APIExtractor struct {
	cfg    config.SourceConfig
	client *http.Client
}

// envelopeKeys are the common wrapper keys APIs put their record array under.
var envelopeKeys = []string{"data", "results", "items", "records"}

func NewAPIExtractor(cfg config.SourceConfig) *APIExtractor {
	return &APIExtractor{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *APIExtractor) Name() string {
	return e.cfg.Name
}

func (e *APIExtractor) ValidateSource(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, e.cfg.URL, nil)
	if err != nil {
		return false
	}
	e.authorize(req)
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 400
}

func (e *APIExtractor) Extract(ctx context.Context) (*dataset.Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range e.cfg.Headers {
		req.Header.Set(k, v)
	}
	e.authorize(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceNotFound, e.cfg.URL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s returned status %d", ErrSourceAuth, e.cfg.URL, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s returned status 404", ErrSourceNotFound, e.cfg.URL)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s returned status %d", e.cfg.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return objectsToDataset(unwrapEnvelope(body), e.cfg.URL)
}

func (e *APIExtractor) authorize(req *http.Request) {
	if e.cfg.Auth.Token != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.Auth.Token)
		return
	}
	if e.cfg.Auth.Username != "" {
		req.SetBasicAuth(e.cfg.Auth.Username, e.cfg.Auth.Password)
	}
}

// unwrapEnvelope pulls the record array out of a single-key wrapper object
// like {"data": [...]}. A body that is already an array passes through.
func unwrapEnvelope(body []byte) []byte {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return body
	}
	for _, key := range envelopeKeys {
		if inner, ok := probe[key]; ok {
			var arr []json.RawMessage
			if json.Unmarshal(inner, &arr) == nil {
				return inner
			}
		}
	}
	return body
}
