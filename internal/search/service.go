package search

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Warn().Err(err).Msg("search: meilisearch error, falling back to pgfts")
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Error().Err(err).Msg("search: pgfts error")
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexIdea indexes an idea (fire-and-forget to Meilisearch).
func (s *Service) IndexIdea(idea IdeaRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexIdea(idea); err != nil {
			log.Warn().Err(err).Str("idea", idea.ID).Msg("search: index idea")
		}
	}()
}

// DeleteIdea removes an idea from the search index (fire-and-forget).
func (s *Service) DeleteIdea(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteIdea(id); err != nil {
			log.Warn().Err(err).Str("idea", id).Msg("search: delete idea")
		}
	}()
}

// ReindexAllFromPG reads every idea from Postgres and pushes it to Meilisearch.
// Called at startup when Meilisearch is healthy.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	ideas, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Error().Err(err).Msg("search: reindex load failed")
		return
	}
	if err := s.meili.IndexIdeas(ideas); err != nil {
		log.Error().Err(err).Msg("search: reindex ideas")
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
