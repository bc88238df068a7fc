// Package elastic wraps the Elasticsearch client with the handful of calls the
// backend makes: index management, bulk indexing, search and deletion.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"elasticlm-backend/internal/models"
)

// ErrUnauthorized is returned when the engine rejects the API key.
var ErrUnauthorized = errors.New("Invalid API key or insufficient permissions")

// StatusError is a non-2xx engine response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Elasticsearch error: %s", e.Status)
}

// Unwrap makes 401 and 403 answers match ErrUnauthorized.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

type Client struct {
	es *elasticsearch.Client
}

type Options struct {
	// DisableRetry turns off transport retries on 502/503/504.
	DisableRetry bool
	HTTPClient   *http.Client
}

// New creates a client authenticated with an API key. A trailing slash on url
// is ignored.
func New(url, apiKey string, opts ...Options) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{strings.TrimSuffix(url, "/")},
		APIKey:    apiKey,
	}
	if len(opts) > 0 {
		cfg.DisableRetry = opts[0].DisableRetry
		if opts[0].HTTPClient != nil {
			cfg.Transport = opts[0].HTTPClient.Transport
		}
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return &Client{es: es}, nil
}

func checkResponse(res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return &StatusError{StatusCode: res.StatusCode, Status: res.Status(), Body: string(body)}
}

func encodeBody(body interface{}) (io.Reader, error) {
	if r, ok := body.(io.Reader); ok {
		return r, nil
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return &buf, nil
}

// Ping reports whether the cluster answered.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return checkResponse(res)
}

// EnsureIndex creates index with mapping unless it already exists.
func (c *Client) EnsureIndex(ctx context.Context, index string, mapping map[string]interface{}) (bool, error) {
	res, err := c.es.Indices.Exists([]string{index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check index %s: %w", index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return false, nil
	}
	if res.StatusCode != http.StatusNotFound {
		return false, checkResponse(res)
	}

	body, err := encodeBody(mapping)
	if err != nil {
		return false, err
	}
	res, err = c.es.Indices.Create(index,
		c.es.Indices.Create.WithBody(body),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create index %s: %w", index, err)
	}
	defer res.Body.Close()
	if err := checkResponse(res); err != nil {
		return false, fmt.Errorf("failed to create index %s: %w", index, err)
	}
	return true, nil
}

// Search runs a query body against index and returns the hits verbatim.
func (c *Client) Search(ctx context.Context, index string, body interface{}) (*models.SearchHits, error) {
	reader, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(reader),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if err := checkResponse(res); err != nil {
		return nil, err
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []json.RawMessage `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := parsed.Hits.Hits
	if hits == nil {
		hits = []json.RawMessage{}
	}
	return &models.SearchHits{Total: parsed.Hits.Total.Value, Hits: hits}, nil
}

const appendChatScript = "ctx._source.messages.addAll(params.messages); ctx._source.updated_at = params.updated_at"

// AppendChat adds record's messages to the chat stored under record.ChatID,
// creating the chat when it does not exist yet.
func (c *Client) AppendChat(ctx context.Context, index string, record models.ChatRecord) error {
	body, err := encodeBody(map[string]interface{}{
		"script": map[string]interface{}{
			"lang":   "painless",
			"source": appendChatScript,
			"params": map[string]interface{}{
				"messages":   record.Messages,
				"updated_at": record.UpdatedAt,
			},
		},
		"upsert": record,
	})
	if err != nil {
		return err
	}
	res, err := c.es.Update(index, record.ChatID, body,
		c.es.Update.WithRetryOnConflict(3),
		c.es.Update.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return checkResponse(res)
}

// BulkDocument is one item of a bulk request.
type BulkDocument struct {
	ID   string
	Body interface{}
}

// BulkIndex indexes docs with the given number of workers and returns how
// many succeeded. Per-item failures are logged, not returned.
func (c *Client) BulkIndex(ctx context.Context, index string, docs []BulkDocument, workers int) (int, error) {
	if workers <= 0 {
		workers = 1
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     c.es,
		Index:      index,
		NumWorkers: workers,
		Timeout:    120 * time.Second,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	var succeeded int64
	for _, doc := range docs {
		data, err := json.Marshal(doc.Body)
		if err != nil {
			log.Printf("Bulk index: skipping %s: %v", doc.ID, err)
			continue
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: doc.ID,
			Body:       bytes.NewReader(data),
			OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
				atomic.AddInt64(&succeeded, 1)
			},
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					log.Printf("Indexing error for %s: %v", item.DocumentID, err)
					return
				}
				log.Printf("Indexing error for %s: %s: %s", item.DocumentID, res.Error.Type, res.Error.Reason)
			},
		})
		if err != nil {
			bi.Close(ctx)
			return int(atomic.LoadInt64(&succeeded)), fmt.Errorf("failed to add bulk item: %w", err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return int(atomic.LoadInt64(&succeeded)), fmt.Errorf("failed to flush bulk indexer: %w", err)
	}
	return int(atomic.LoadInt64(&succeeded)), nil
}

// DeleteByQuery removes every document matching body and returns the count.
func (c *Client) DeleteByQuery(ctx context.Context, index string, body interface{}) (int, error) {
	reader, err := encodeBody(body)
	if err != nil {
		return 0, err
	}
	res, err := c.es.DeleteByQuery([]string{index}, reader,
		c.es.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if err := checkResponse(res); err != nil {
		return 0, err
	}

	var parsed struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode delete response: %w", err)
	}
	return parsed.Deleted, nil
}

// ListIndices returns the cat indices rows.
func (c *Client) ListIndices(ctx context.Context) ([]map[string]interface{}, error) {
	res, err := c.es.Cat.Indices(
		c.es.Cat.Indices.WithContext(ctx),
		c.es.Cat.Indices.WithFormat("json"),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if err := checkResponse(res); err != nil {
		return nil, err
	}
	var rows []map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode indices: %w", err)
	}
	return rows, nil
}

// GetMapping returns the raw mapping of index.
func (c *Client) GetMapping(ctx context.Context, index string) (json.RawMessage, error) {
	res, err := c.es.Indices.GetMapping(
		c.es.Indices.GetMapping.WithContext(ctx),
		c.es.Indices.GetMapping.WithIndex(index),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if err := checkResponse(res); err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}
