// internal/store/elastic.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"event-assistant/internal/common/logger"
	"event-assistant/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticEventSearcher implements EventSearcher against an events index.
// It only builds queries; ordering of results is the ranking engine's job.
type ElasticEventSearcher struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticEventSearcher(client *elasticsearch.Client, index string, log logger.Logger) *ElasticEventSearcher {
	return &ElasticEventSearcher{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "event-searcher"}),
	}
}

type esEventDoc struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Location      string   `json:"location"`
	Coordinates   *geoDoc  `json:"coordinates,omitempty"`
	Date          string   `json:"date"`
	Price         float64  `json:"price"`
	Organizer     string   `json:"organizer"`
	AttendeeCount int      `json:"attendeeCount"`
	Status        string   `json:"status"`
	CreatedAt     string   `json:"createdAt"`
	RiskScore     float64  `json:"riskScore"`
	Warnings      []string `json:"moderationWarnings"`
}

type geoDoc struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func (s *ElasticEventSearcher) Search(ctx context.Context, q EventQuery) ([]models.Event, error) {
	body := buildSearchBody(q)

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source esEventDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	events := make([]models.Event, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		events = append(events, docToEvent(hit.Source))
	}
	return events, nil
}

// buildSearchBody assembles a bool query: free text in must, everything
// else as filters, geo_distance when a center is given.
func buildSearchBody(q EventQuery) map[string]interface{} {
	var must []interface{}
	var filter []interface{}

	if q.Text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Text,
				"fields": []string{"title^2", "description", "category", "location"},
			},
		})
	}

	if len(q.Categories) > 0 {
		filter = append(filter, map[string]interface{}{
			"terms": map[string]interface{}{"category": q.Categories},
		})
	}

	if len(q.Statuses) > 0 {
		filter = append(filter, map[string]interface{}{
			"terms": map[string]interface{}{"status": q.Statuses},
		})
	}

	if q.MaxPrice != nil {
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{
				"price": map[string]interface{}{"lte": *q.MaxPrice},
			},
		})
	}

	if q.From != nil || q.To != nil {
		dateRange := map[string]interface{}{}
		if q.From != nil {
			dateRange["gte"] = q.From.Format(time.RFC3339)
		}
		if q.To != nil {
			dateRange["lte"] = q.To.Format(time.RFC3339)
		}
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{"date": dateRange},
		})
	}

	if q.Center != nil && q.RadiusKm > 0 {
		filter = append(filter, map[string]interface{}{
			"geo_distance": map[string]interface{}{
				"distance": fmt.Sprintf("%.0fkm", q.RadiusKm),
				"coordinates": map[string]interface{}{
					"lon": q.Center.Lon,
					"lat": q.Center.Lat,
				},
			},
		})
	}

	boolQuery := map[string]interface{}{}
	if len(must) > 0 {
		boolQuery["must"] = must
	} else {
		boolQuery["must"] = []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}}
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	size := q.Limit
	if size <= 0 {
		size = 50
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"size":  size,
	}
}

func docToEvent(doc esEventDoc) models.Event {
	ev := models.Event{
		ID:            doc.ID,
		Title:         doc.Title,
		Description:   doc.Description,
		Category:      doc.Category,
		Location:      doc.Location,
		Price:         doc.Price,
		Organizer:     doc.Organizer,
		AttendeeCount: doc.AttendeeCount,
		Status:        doc.Status,
		Flags: models.EventFlags{
			RiskScore: doc.RiskScore,
			Warnings:  doc.Warnings,
		},
	}
	if doc.Coordinates != nil {
		ev.Coordinates = &models.GeoPoint{Lon: doc.Coordinates.Lon, Lat: doc.Coordinates.Lat}
	}
	if t, err := time.Parse(time.RFC3339, doc.Date); err == nil {
		ev.Date = t
	}
	if t, err := time.Parse(time.RFC3339, doc.CreatedAt); err == nil {
		ev.CreatedAt = t
	}
	return ev
}
