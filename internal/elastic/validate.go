package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ProbeError means no validation endpoint answered successfully.
type ProbeError struct {
	Reason string
}

func (e *ProbeError) Error() string {
	if e.Reason == "" {
		return "Failed to connect to Elasticsearch"
	}
	return e.Reason
}

// Validate probes the cluster root, the cat indices API and cluster health in
// that order, giving each probe its own timeout when timeout > 0. The first
// 2xx answer wins; 401/403 stops immediately with ErrUnauthorized.
func (c *Client) Validate(ctx context.Context, timeout time.Duration) (interface{}, error) {
	probes := []struct {
		name string
		call func(ctx context.Context) (*esapi.Response, error)
	}{
		{"/", func(ctx context.Context) (*esapi.Response, error) {
			return c.es.Info(c.es.Info.WithContext(ctx))
		}},
		{"/_cat/indices?format=json", func(ctx context.Context) (*esapi.Response, error) {
			return c.es.Cat.Indices(c.es.Cat.Indices.WithContext(ctx), c.es.Cat.Indices.WithFormat("json"))
		}},
		{"/_cluster/health", func(ctx context.Context) (*esapi.Response, error) {
			return c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
		}},
	}

	var lastErr string
	for _, probe := range probes {
		log.Printf("Trying to validate with endpoint: %s", probe.name)

		data, reason, err := runProbe(ctx, timeout, probe.call)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			lastErr = reason
			continue
		}
		return data, nil
	}

	return nil, &ProbeError{Reason: lastErr}
}

func runProbe(ctx context.Context, timeout time.Duration, call func(context.Context) (*esapi.Response, error)) (interface{}, string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := call(ctx)
	if err != nil {
		return nil, err.Error(), nil
	}
	return readProbe(res)
}

func readProbe(res *esapi.Response) (interface{}, string, error) {
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return nil, "", ErrUnauthorized
	case res.StatusCode == http.StatusGone:
		return nil, "This endpoint is not available (410 Gone)", nil
	case res.IsError():
		return nil, fmt.Sprintf("Elasticsearch returned: %s", res.Status()), nil
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err.Error(), nil
	}
	var data interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return map[string]string{"message": "Connection successful"}, "", nil
	}
	return data, "", nil
}
