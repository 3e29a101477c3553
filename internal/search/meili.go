package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog/log"
)

const idxIdeas = "ideasportal_ideas"

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the ideas index.
// Returns a client even if the initial connection fails; the health loop
// reconfigures the index once Meilisearch comes back.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("search: meilisearch unavailable")
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxIdeas,
		PrimaryKey: "id",
	}); err != nil {
		log.Debug().Err(err).Str("index", idxIdeas).Msg("search: create index (may already exist)")
	}

	index := m.client.Index(idxIdeas)

	filterable := []interface{}{"submitter_id", "current_step", "status"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Warn().Err(err).Msg("search: update filterable attrs")
	}
	searchable := []string{"subject", "description", "idea_number"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Warn().Err(err).Msg("search: update searchable attrs")
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Info().Msg("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the ideas index.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	sr := &meili.SearchRequest{
		Limit:                 limit,
		Offset:                int64(q.Offset),
		AttributesToHighlight: []string{"*"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}

	var filters []string
	if q.SubmitterID != "" {
		filters = append(filters, fmt.Sprintf("submitter_id = %q", q.SubmitterID))
	}
	if len(q.Steps) > 0 {
		quoted := make([]string, len(q.Steps))
		for i, step := range q.Steps {
			quoted[i] = fmt.Sprintf("%q", step)
		}
		filters = append(filters, fmt.Sprintf("current_step IN [%s]", strings.Join(quoted, ", ")))
	}
	if len(filters) > 0 {
		sr.Filter = filters
	}

	resp, err := m.client.Index(idxIdeas).Search(q.Text, sr)
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, hitToResult(hit))
	}
	return results, int(resp.EstimatedTotalHits), nil
}

func hitToResult(hit meili.Hit) Result {
	return Result{
		ID:          decodeString(hit, "id"),
		IdeaNumber:  decodeString(hit, "idea_number"),
		Subject:     firstNonBlank(decodeFormattedString(hit, "subject"), decodeString(hit, "subject")),
		Snippet:     firstNonBlank(decodeFormattedString(hit, "description"), decodeString(hit, "description")),
		Status:      decodeString(hit, "status"),
		CurrentStep: decodeString(hit, "current_step"),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexIdea adds or updates one idea in the search index.
func (m *Meili) IndexIdea(idea IdeaRecord) error {
	_, err := m.client.Index(idxIdeas).AddDocuments([]IdeaRecord{idea}, nil)
	return err
}

// IndexIdeas bulk-indexes ideas.
func (m *Meili) IndexIdeas(ideas []IdeaRecord) error {
	if len(ideas) == 0 {
		return nil
	}
	_, err := m.client.Index(idxIdeas).AddDocuments(ideas, nil)
	return err
}

// DeleteIdea removes an idea from the search index.
func (m *Meili) DeleteIdea(id string) error {
	_, err := m.client.Index(idxIdeas).DeleteDocument(id, nil)
	return err
}
