package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const searchSize = 50

type ESConfig struct {
	URL      string
	User     string
	Password string
	Index    string
}

// ESSearcher queries a product index kept in Elasticsearch.
type ESSearcher struct {
	ES    *elasticsearch.Client
	Index string
}

// NewESSearcher connects and checks the cluster answers before use.
func NewESSearcher(ctx context.Context, cfg ESConfig) (*ESSearcher, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.es")

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("es: new client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("es: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return nil, fmt.Errorf("es: info: %s: %s", res.Status(), body)
	}

	index := cfg.Index
	if index == "" {
		index = "product"
	}
	l.Info("es_connected", "url", cfg.URL, "index", index)
	return &ESSearcher{ES: client, Index: index}, nil
}

func (s *ESSearcher) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     term,
				"fields":    []string{"nombreProducto^2", "descProducto", "nombreCategoria", "nombreMarca"},
				"fuzziness": "AUTO",
			},
		},
		"size": searchSize,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("es: encode query: %w", err)
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.Index),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("es: search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("es: decode: %w", err)
	}

	out := make([]models.Product, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		out[i] = hit.Source
	}
	return out, nil
}

// IndexProduct upserts one product document, keyed by its id.
func (s *ESSearcher) IndexProduct(ctx context.Context, p models.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("es: encode product: %w", err)
	}
	res, err := s.ES.Index(s.Index, bytes.NewReader(data),
		s.ES.Index.WithContext(ctx),
		s.ES.Index.WithDocumentID(strconv.FormatInt(p.ID, 10)),
	)
	if err != nil {
		return fmt.Errorf("es: index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("es: index: %s", res.Status())
	}
	return nil
}

// DeleteProduct removes a product document. A missing document is not an error.
func (s *ESSearcher) DeleteProduct(ctx context.Context, productID int64) error {
	res, err := s.ES.Delete(s.Index, strconv.FormatInt(productID, 10), s.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: delete: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("es: delete: %s", res.Status())
	}
	return nil
}
