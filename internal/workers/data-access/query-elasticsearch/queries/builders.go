// internal/workers/data-access/query-elasticsearch/queries/builders.go
package queries

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	QueryBiasReports = "bias_reports"
	QueryAuditEvents = "audit_events"
)

var (
	ErrUnknownQueryType = errors.New("unknown query type")
	ErrMissingIndex     = errors.New("index name is required")
	ErrIndexNotFound    = errors.New("index not found")
)

// SearchQuery carries one typed search against a report index.
type SearchQuery struct {
	Index         string
	QueryType     string
	Filters       map[string]interface{}
	EventID       string
	ApplicationID string
	Pagination    struct {
		From int
		Size int
	}
}

// BuildQuery builds an Elasticsearch search request for the query type.
func BuildQuery(sq SearchQuery) (*esapi.SearchRequest, error) {
	if sq.Index == "" {
		return nil, ErrMissingIndex
	}

	var queryBody map[string]interface{}

	switch sq.QueryType {
	case QueryBiasReports:
		queryBody = buildBiasReportsQuery(sq)
	case QueryAuditEvents:
		queryBody = buildAuditEventsQuery(sq)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueryType, sq.QueryType)
	}

	body, _ := json.Marshal(queryBody)

	req := esapi.SearchRequest{
		Index: []string{sq.Index},
		Body:  strings.NewReader(string(body)),
		From:  &sq.Pagination.From,
		Size:  &sq.Pagination.Size,
	}

	return &req, nil
}

// buildBiasReportsQuery searches the indexed fairness reports. Reports are
// keyed by event and risk level; cohort size and generation time narrow
// the window for dashboards.
func buildBiasReportsQuery(sq SearchQuery) map[string]interface{} {
	boolQuery := make(map[string]interface{})
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	if sq.EventID != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"eventId": sq.EventID},
		})
	}
	if risk, ok := sq.Filters["overallRisk"].(string); ok && risk != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"overallRisk": risk},
		})
	}
	if signal, ok := sq.Filters["signal"].(string); ok && signal != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"term": map[string]interface{}{"highRiskSignals": signal},
		})
	}
	if min, ok := asNumber(sq.Filters["minCohortSize"]); ok && min > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"cohortSize": map[string]interface{}{"gte": min},
			},
		})
	}
	if generated := generatedRange(sq.Filters); generated != nil {
		filterClauses = append(filterClauses, generated)
	}

	if len(mustClauses) == 0 {
		mustClauses = append(mustClauses, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	boolQuery["must"] = mustClauses
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
	}

	switch sortBy, _ := sq.Filters["sortBy"].(string); sortBy {
	case "generatedAt":
		query["sort"] = []map[string]interface{}{{"generatedAt": "desc"}}
	case "cohortSize":
		query["sort"] = []map[string]interface{}{{"cohortSize": "desc"}}
	}

	return query
}

// buildAuditEventsQuery searches archived audit trails. Trails are nested
// documents, so reviewer and volume filters address the auditTrail object.
func buildAuditEventsQuery(sq SearchQuery) map[string]interface{} {
	boolQuery := make(map[string]interface{})
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	if sq.EventID != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"eventId": sq.EventID},
		})
	}
	if sq.ApplicationID != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"applicationId": sq.ApplicationID},
		})
	}
	if reviewerID, ok := sq.Filters["reviewerId"].(string); ok && reviewerID != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"auditTrail.topReviewers.reviewerId": reviewerID},
		})
	}
	if min, ok := asNumber(sq.Filters["minEvents"]); ok && min > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"auditTrail.totalEvents": map[string]interface{}{"gte": min},
			},
		})
	}
	if anomaliesOnly, ok := sq.Filters["anomaliesOnly"].(bool); ok && anomaliesOnly {
		mustClauses = append(mustClauses, map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{"exists": map[string]interface{}{"field": "auditTrail.anomalies.rapidFire"}},
					map[string]interface{}{"exists": map[string]interface{}{"field": "auditTrail.anomalies.incomplete"}},
				},
				"minimum_should_match": 1,
			},
		})
	}
	if generated := generatedRange(sq.Filters); generated != nil {
		filterClauses = append(filterClauses, generated)
	}

	if len(mustClauses) == 0 {
		mustClauses = append(mustClauses, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	boolQuery["must"] = mustClauses
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
	}

	if sortBy, ok := sq.Filters["sortBy"].(string); ok && sortBy == "generatedAt" {
		query["sort"] = []map[string]interface{}{{"generatedAt": "desc"}}
	}

	return query
}

// generatedRange folds the from/to filters into one range clause on the
// document timestamp.
func generatedRange(filters map[string]interface{}) map[string]interface{} {
	bounds := map[string]interface{}{}
	if after, ok := filters["generatedAfter"].(string); ok && after != "" {
		bounds["gte"] = after
	}
	if before, ok := filters["generatedBefore"].(string); ok && before != "" {
		bounds["lte"] = before
	}
	if len(bounds) == 0 {
		return nil
	}
	return map[string]interface{}{
		"range": map[string]interface{}{"generatedAt": bounds},
	}
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
