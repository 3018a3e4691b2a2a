package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/banking/fraud-risk/internal/config"
	"github.com/banking/fraud-risk/internal/domain"
	"github.com/banking/fraud-risk/internal/repository"
	elastic "github.com/elastic/go-elasticsearch/v8"
)

// SearchRepository indexes resolved transactions for the admin search
// console. Indexing is best effort; the postgres record is the source of
// truth.
type SearchRepository struct {
	client *elastic.Client
	index  string
}

// NewSearchRepository creates a new search repository
func NewSearchRepository(cfg config.ElasticsearchConfig) (*SearchRepository, error) {
	client, err := elastic.NewClient(elastic.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	// Verify connection
	_, err = client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}

	return &SearchRepository{
		client: client,
		index:  cfg.Index,
	}, nil
}

// IndexTransaction indexes a resolved transaction for search
func (r *SearchRepository) IndexTransaction(ctx context.Context, tx *domain.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(data),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(tx.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("failed to index transaction: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}

	return nil
}

// SearchTransactions runs a query-string search over resolved transactions
// (merchant names, resolution notes, categories).
func (r *SearchRepository) SearchTransactions(ctx context.Context, query string, from, size int) (*repository.TransactionPage, error) {
	esQuery := map[string]interface{}{
		"from": from,
		"size": size,
		"query": map[string]interface{}{
			"query_string": map[string]interface{}{
				"query": query,
			},
		},
		"sort": []map[string]interface{}{
			{"submitted_at": "desc"},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to perform search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search error: %s", res.String())
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// Response shape:
	// { "hits": { "total": { "value": ... }, "hits": [ { "_source": ... } ] } }
	hitsMap, ok := result["hits"].(map[string]interface{})
	if !ok {
		return &repository.TransactionPage{}, nil
	}

	totalMap, ok := hitsMap["total"].(map[string]interface{})
	var total int64
	if ok {
		if val, ok := totalMap["value"].(float64); ok {
			total = int64(val)
		}
	}

	hitsList, ok := hitsMap["hits"].([]interface{})
	if !ok {
		return &repository.TransactionPage{}, nil
	}

	var transactions []*domain.Transaction
	for _, hit := range hitsList {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}

		sourceBytes, _ := json.Marshal(source)
		var tx domain.Transaction
		if err := json.Unmarshal(sourceBytes, &tx); err == nil {
			transactions = append(transactions, &tx)
		}
	}

	return &repository.TransactionPage{
		Transactions: transactions,
		TotalCount:   total,
		HasMore:      total > int64(from+size),
	}, nil
}
