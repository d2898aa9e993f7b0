package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	domdoc "github.com/koralov/raggate/internal/domain/document"
	"github.com/koralov/raggate/internal/domain/search/filter"
	"github.com/koralov/raggate/internal/domain/search/request"
	"github.com/koralov/raggate/internal/domain/search/result"
	"github.com/koralov/raggate/internal/logger"
	"github.com/koralov/raggate/internal/metrics"
)

// Search type labels surfaced in response metadata.
const (
	SearchTypeHybrid      = "hybrid"
	SearchTypeLexicalOnly = "lexical_only"
)

// Config holds the fusion tuning knobs.
type Config struct {
	RankConstant  int     // RRF rank constant (default 60)
	FusionWindow  int     // candidates considered per channel (default 100)
	CandidatePool int     // kNN candidate pool size (default 100)
	ScoreCeiling  float64 // empirical BM25 ceiling for confidence normalization
}

func (c Config) withDefaults() Config {
	if c.RankConstant <= 0 {
		c.RankConstant = 60
	}
	if c.FusionWindow <= 0 {
		c.FusionWindow = 100
	}
	if c.CandidatePool <= 0 {
		c.CandidatePool = 100
	}
	if c.ScoreCeiling <= 0 {
		c.ScoreCeiling = 20
	}
	return c
}

// Output is the retrieval result set plus search metadata.
type Output struct {
	Results       []result.Ranked
	TotalHits     int
	Facets        *result.Facets
	SearchType    string
	UsedReranking bool
	Took          time.Duration
}

// Service runs hybrid retrieval: lexical and kNN channels fused via
// RRF, hydrated, defensively post-filtered, optionally reranked.
type Service struct {
	repo   Repository
	docs   DocumentReader
	embed  Embedder
	rerank Reranker
	sink   metrics.Sink
	cfg    Config
}

// New creates a search service. A nil sink disables stage timings.
func New(repo Repository, docs DocumentReader, embed Embedder, rerank Reranker, sink metrics.Sink, cfg Config) *Service {
	if sink == nil {
		sink = metrics.Nop{}
	}
	return &Service{repo: repo, docs: docs, embed: embed, rerank: rerank, sink: sink, cfg: cfg.withDefaults()}
}

// Search executes a hybrid search for the given request.
func (s *Service) Search(ctx context.Context, req *request.Request) (*Output, error) {
	start := time.Now()

	out := &Output{SearchType: SearchTypeHybrid}

	knnHits := s.vectorChannel(ctx, req, out)

	lexStart := time.Now()
	lexHits, lexTotal, err := s.repo.Lexical(
		ctx, req.Query(), req.Filters(), s.cfg.FusionWindow, req.WithHighlights(),
	)
	if err != nil {
		return nil, fmt.Errorf("lexical channel: %w", err)
	}
	s.sink.SearchStage(metrics.StageLexical, time.Since(lexStart))

	fused := fuseRRF(knnHits, lexHits, s.cfg.RankConstant, s.cfg.FusionWindow)

	// When reranking downstream, hand it a wider fused slate to
	// re-score; otherwise exactly topK.
	fusedSize := req.TopK()
	if req.EnableRerank() {
		fusedSize = 3 * req.TopK()
	}
	if len(fused) > fusedSize {
		fused = fused[:fusedSize]
	}

	candidates, err := s.hydrate(ctx, fused, req.Filters())
	if err != nil {
		return nil, err
	}

	if req.EnableRerank() && len(candidates) > 0 {
		rerankStart := time.Now()
		out.Results, out.UsedReranking = s.rerank.Rerank(ctx, req.Query(), candidates, req.TopK())
		s.sink.SearchStage(metrics.StageRerank, time.Since(rerankStart))
	} else {
		if len(candidates) > req.TopK() {
			candidates = candidates[:req.TopK()]
		}
		ranked := make([]result.Ranked, len(candidates))
		for i := range candidates {
			ranked[i] = result.FromResult(candidates[i])
		}
		out.Results = ranked
	}

	out.TotalHits = max(lexTotal, len(fused))

	if req.WithFacets() {
		facets, err := s.repo.Facets(ctx, req.Filters())
		if err != nil {
			return nil, fmt.Errorf("facets: %w", err)
		}
		out.Facets = &facets
	}

	out.Took = time.Since(start)
	return out, nil
}

// vectorChannel embeds the query and runs kNN. Embedding failure is
// never fatal: the search degrades to lexical-only with a warning.
func (s *Service) vectorChannel(ctx context.Context, req *request.Request, out *Output) []result.Hit {
	if strings.TrimSpace(req.Query()) == "" {
		out.SearchType = SearchTypeLexicalOnly
		return nil
	}

	embedStart := time.Now()
	emb, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		logger.FromContext(ctx).Warn("query embedding failed, degrading to lexical-only",
			zap.Error(err))
		out.SearchType = SearchTypeLexicalOnly
		return nil
	}
	s.sink.SearchStage(metrics.StageEmbed, time.Since(embedStart))

	k := max(2*req.TopK(), s.cfg.CandidatePool)
	knnStart := time.Now()
	hits, err := s.repo.KNN(ctx, emb.Embedding, req.Filters(), k)
	if err != nil {
		logger.FromContext(ctx).Warn("knn channel failed, degrading to lexical-only",
			zap.Error(err))
		out.SearchType = SearchTypeLexicalOnly
		return nil
	}
	s.sink.SearchStage(metrics.StageKNN, time.Since(knnStart))

	return hits
}

// hydrate loads full documents for fused hits and re-applies the
// filters client-side as a defensive measure against stale index state.
func (s *Service) hydrate(
	ctx context.Context, fused []fusedHit, filters filter.Filters,
) ([]result.Result, error) {
	if len(fused) == 0 {
		return nil, nil
	}

	ids := make([]string, len(fused))
	for i, h := range fused {
		ids[i] = h.id
	}

	docs, err := s.docs.GetMulti(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate candidates: %w", err)
	}

	byID := make(map[string]domdoc.Document, len(docs))
	for i := range docs {
		byID[docs[i].ID()] = docs[i]
	}

	results := make([]result.Result, 0, len(fused))
	for _, h := range fused {
		doc, ok := byID[h.id]
		if !ok {
			continue
		}
		if !filters.Matches(&doc) {
			continue
		}

		// Confidence comes from the stronger channel: normalized BM25
		// or the cosine similarity (already in [0,1]).
		conf := result.NormalizeConfidence(h.lexScore, s.cfg.ScoreCeiling)
		if h.knnScore > conf {
			conf = h.knnScore
		}

		var highlights []string
		if h.highlight != "" {
			highlights = []string{h.highlight}
		}

		results = append(results, result.New(h.id, h.score, conf, doc, highlights))
	}

	return results, nil
}
