// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"directory-assistant/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// businessMapping folds accents and case at index time so "panaderia" matches
// "Panadería" without a normalizer on the query side.
const businessMapping = `{
  "settings": {
    "analysis": {
      "analyzer": {
        "folded": {"tokenizer": "standard", "filter": ["lowercase", "asciifolding"]}
      }
    }
  },
  "mappings": {
    "properties": {
      "id":          {"type": "long"},
      "name":        {"type": "text", "analyzer": "folded"},
      "category":    {"type": "text", "analyzer": "folded", "fields": {"raw": {"type": "keyword"}}},
      "description": {"type": "text", "analyzer": "folded"},
      "address":     {"type": "keyword", "index": false},
      "phone":       {"type": "keyword", "index": false},
      "whatsapp":    {"type": "keyword", "index": false},
      "rating":      {"type": "float"},
      "location":    {"type": "geo_point"},
      "is_active":   {"type": "boolean"},
      "updated_at":  {"type": "date"}
    }
  }
}`

// ElasticsearchClient holds the business-catalog index client.
type ElasticsearchClient struct {
	Client        *elasticsearch.Client
	BusinessIndex string
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("elasticsearch addresses are empty")
	}
	if cfg.BusinessIndex == "" {
		return nil, fmt.Errorf("elasticsearch business index is empty")
	}

	esCfg := elasticsearch.Config{Addresses: cfg.Addresses}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticsearchClient{Client: es, BusinessIndex: cfg.BusinessIndex}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

// EnsureBusinessIndex creates the business index with the folded mapping when
// it does not exist yet. An existing index is left untouched.
func (c *ElasticsearchClient) EnsureBusinessIndex(ctx context.Context) (bool, error) {
	res, err := c.Client.Indices.Exists([]string{c.BusinessIndex}, c.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", c.BusinessIndex, err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return false, nil
	case http.StatusNotFound:
	default:
		return false, fmt.Errorf("check index %s: %s", c.BusinessIndex, res.Status())
	}

	res, err = c.Client.Indices.Create(c.BusinessIndex,
		c.Client.Indices.Create.WithBody(strings.NewReader(businessMapping)),
		c.Client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("create index %s: %w", c.BusinessIndex, err)
	}
	defer res.Body.Close()

	// a concurrent replica may have created it first
	if res.StatusCode == http.StatusBadRequest && strings.Contains(readBody(res.Body), "resource_already_exists_exception") {
		return false, nil
	}
	if res.IsError() {
		return false, fmt.Errorf("create index %s: %s", c.BusinessIndex, res.Status())
	}
	return true, nil
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	return string(b)
}
