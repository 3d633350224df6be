// internal/workers/data-access/query-elasticsearch/queries/registry.go
package queries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

type QueryResult struct {
	Data      []map[string]interface{}
	TotalHits int64
	MaxScore  float64
	Took      int64
}

func Execute(ctx context.Context, esClient *elasticsearch.Client, input map[string]interface{}) (*QueryResult, error) {
	sq := SearchQuery{}
	sq.Index, _ = input["indexName"].(string)
	sq.QueryType, _ = input["queryType"].(string)
	sq.Filters, _ = input["filters"].(map[string]interface{})
	sq.Pagination.Size = 20

	if eventID, ok := input["eventId"].(string); ok {
		sq.EventID = eventID
	}
	if applicationID, ok := input["applicationId"].(string); ok {
		sq.ApplicationID = applicationID
	}
	if from, ok := input["from"].(int); ok && from > 0 {
		sq.Pagination.From = from
	}
	if size, ok := input["size"].(int); ok && size != 0 {
		sq.Pagination.Size = size
		if sq.Pagination.Size > 100 {
			sq.Pagination.Size = 100
		}
		if sq.Pagination.Size < 1 {
			sq.Pagination.Size = 20
		}
	}

	req, err := BuildQuery(sq)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := req.Do(ctx, esClient)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, sq.Index)
	}
	if res.IsError() {
		return nil, fmt.Errorf("search query failed: %s", res.String())
	}

	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}

	hits, ok := r["hits"].(map[string]interface{})
	if !ok {
		return nil, errors.New("malformed search response")
	}

	total := 0.0
	if t, ok := hits["total"].(map[string]interface{}); ok {
		total, _ = t["value"].(float64)
	}
	maxScore := 0.0
	if ms, ok := hits["max_score"].(float64); ok {
		maxScore = ms
	}

	var data []map[string]interface{}
	if hitList, ok := hits["hits"].([]interface{}); ok {
		for _, hit := range hitList {
			doc, ok := hit.(map[string]interface{})
			if !ok {
				continue
			}
			if source, ok := doc["_source"].(map[string]interface{}); ok {
				data = append(data, source)
			}
		}
	}

	return &QueryResult{
		Data:      data,
		TotalHits: int64(total),
		MaxScore:  maxScore,
		Took:      time.Since(start).Milliseconds(),
	}, nil
}
