package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"gigbook-workers/internal/common/errors"
	"gigbook-workers/internal/common/logger"
	"gigbook-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// defaultPageSize is the number of hits per search_after page.
const defaultPageSize = 500

// ProfileSearch reads musician profiles from the Elasticsearch musician index. Documents
// carry the MusicianProfile JSON fields plus isApproved and isAvailable flags. The index
// maps instruments as a keyword with a lowercase normalizer.
type ProfileSearch struct {
	client *elasticsearch.Client
	index  string
	size   int
	logger logger.Logger
}

func NewProfileSearch(client *elasticsearch.Client, index string, log logger.Logger) *ProfileSearch {
	return &ProfileSearch{
		client: client,
		index:  index,
		size:   defaultPageSize,
		logger: log.WithFields(map[string]interface{}{"store": "profile_search", "index": index}),
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.MusicianProfile `json:"_source"`
			Sort   []interface{}          `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

func approvedAvailableQuery(size int, instrument string, after []interface{}) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"isApproved": true}},
		map[string]interface{}{"term": map[string]interface{}{"isAvailable": true}},
	}
	if instrument = models.NormalizeKey(instrument); instrument != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"instruments": instrument}})
	}

	q := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"sort": []interface{}{
			map[string]interface{}{"id": map[string]interface{}{"order": "asc"}},
		},
	}
	if len(after) > 0 {
		q["search_after"] = after
	}
	return q
}

// FetchApprovedAvailableMusicians pages through the index with search_after on the id sort
// until a short page comes back.
func (s *ProfileSearch) FetchApprovedAvailableMusicians(ctx context.Context, instrument string) ([]models.MusicianProfile, error) {
	profiles := make([]models.MusicianProfile, 0)
	var after []interface{}
	pages := 0

	for {
		parsed, err := s.searchPage(ctx, approvedAvailableQuery(s.size, instrument, after))
		if err != nil {
			return nil, err
		}
		pages++

		hits := parsed.Hits.Hits
		for _, hit := range hits {
			profiles = append(profiles, hit.Source)
		}
		if len(hits) < s.size {
			break
		}

		after = hits[len(hits)-1].Sort
		if len(after) == 0 {
			return nil, errors.NewSearchQueryFailedError("approved_available_musicians",
				fmt.Errorf("full page of %d hits without sort values", len(hits)))
		}
	}

	s.logger.Debug("profiles fetched", map[string]interface{}{
		"count":      len(profiles),
		"pages":      pages,
		"instrument": instrument,
	})
	return profiles, nil
}

func (s *ProfileSearch) searchPage(ctx context.Context, query map[string]interface{}) (*searchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError("approved_available_musicians", err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelledError("search.approved_available_musicians", ctx.Err())
		}
		return nil, errors.NewSearchQueryFailedError("approved_available_musicians", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, errors.NewIndexNotFoundError(s.index)
	}
	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError("approved_available_musicians", fmt.Errorf("search failed: %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewSearchQueryFailedError("approved_available_musicians", fmt.Errorf("decode response: %w", err))
	}
	return &parsed, nil
}
