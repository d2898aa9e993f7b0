package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chiv5 "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/koralov/raggate/internal/domain"
	"github.com/koralov/raggate/internal/domain/citation"
	domdoc "github.com/koralov/raggate/internal/domain/document"
	domingest "github.com/koralov/raggate/internal/domain/ingest"
	"github.com/koralov/raggate/internal/domain/search/filter"
	"github.com/koralov/raggate/internal/domain/search/request"
	"github.com/koralov/raggate/internal/domain/search/result"
	"github.com/koralov/raggate/internal/metrics"
	analyzeuc "github.com/koralov/raggate/internal/usecase/analyze"
	"github.com/koralov/raggate/internal/usecase/cite"
	compareuc "github.com/koralov/raggate/internal/usecase/compare"
	healthuc "github.com/koralov/raggate/internal/usecase/health"
	ingestuc "github.com/koralov/raggate/internal/usecase/ingest"
	searchuc "github.com/koralov/raggate/internal/usecase/search"
	summarizeuc "github.com/koralov/raggate/internal/usecase/summarize"
)

// errorCode identifies an error class in the structured error payload.
type errorCode string

const (
	codeBadRequest        errorCode = "bad_request"
	codeValidationFailed  errorCode = "validation_failed"
	codeUnauthorized      errorCode = "unauthorized"
	codeDocumentNotFound  errorCode = "document_not_found"
	codeVectorDimMismatch errorCode = "vector_dim_mismatch"
	codeRateLimited       errorCode = "rate_limited"
	codeModelProvider     errorCode = "model_provider_error"
	codeStoreUnavailable  errorCode = "store_unavailable"
	codeInternalError     errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the gateway tool surface over HTTP.
type Server struct {
	search        *searchuc.Service
	summarize     *summarizeuc.Service
	compare       *compareuc.Service
	analyze       *analyzeuc.Service
	ingest        *ingestuc.Service
	health        *healthuc.Service
	sink          metrics.Sink
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. A nil sink disables request
// accounting.
func NewServer(
	search *searchuc.Service,
	summarize *summarizeuc.Service,
	compare *compareuc.Service,
	analyze *analyzeuc.Service,
	ingest *ingestuc.Service,
	health *healthuc.Service,
	sink metrics.Sink,
	logger *zap.Logger,
) *Server {
	if sink == nil {
		sink = metrics.Nop{}
	}
	s := &Server{
		search:    search,
		summarize: summarize,
		compare:   compare,
		analyze:   analyze,
		ingest:    ingest,
		health:    health,
		sink:      sink,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeVectorDimMismatch),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrModelProviderError, http.StatusBadGateway, codeModelProvider),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
	return s
}

// Routes registers all endpoints on the given router.
func (s *Server) Routes(r chiv5.Router) {
	r.Post("/tool/search", s.SearchTool)
	r.Post("/tool/summarize", s.SummarizeTool)
	r.Post("/tool/cite", s.CiteTool)
	r.Post("/tool/compare", s.CompareTool)
	r.Post("/tool/analyze", s.AnalyzeTool)
	r.Post("/ingest", s.Ingest)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type dateRangeDTO struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

type filtersDTO struct {
	DateRange   *dateRangeDTO `json:"dateRange,omitempty"`
	Categories  []string      `json:"categories,omitempty"`
	Departments []string      `json:"departments,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
}

type searchOptionsDTO struct {
	EnableReranking     *bool `json:"enableReranking,omitempty"`
	IncludeAggregations bool  `json:"includeAggregations,omitempty"`
	IncludeHighlights   bool  `json:"includeHighlights,omitempty"`
}

type searchRequestDTO struct {
	Query   string           `json:"query"`
	Filters *filtersDTO      `json:"filters,omitempty"`
	TopK    int              `json:"topK,omitempty"`
	Options searchOptionsDTO `json:"options,omitempty"`
}

type documentDTO struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Summary    string    `json:"summary,omitempty"`
	Category   string    `json:"category,omitempty"`
	Department string    `json:"department,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Author     string    `json:"author,omitempty"`
	Date       time.Time `json:"date"`
	SourceURL  string    `json:"sourceUrl,omitempty"`
}

type searchResultDTO struct {
	ID            string      `json:"id"`
	Score         float64     `json:"score"`
	Confidence    float64     `json:"confidence"`
	RerankScore   *float64    `json:"rerankScore,omitempty"`
	CombinedScore float64     `json:"combinedScore"`
	Document      documentDTO `json:"document"`
	Highlights    []string    `json:"highlights,omitempty"`
}

type aggregationsDTO struct {
	Categories  map[string]int `json:"categories"`
	Departments map[string]int `json:"departments"`
	Tags        map[string]int `json:"tags"`
	Months      map[string]int `json:"months"`
}

type searchMetricsDTO struct {
	TookMs int64 `json:"tookMs"`
}

type searchResponseDTO struct {
	Results       []searchResultDTO `json:"results"`
	TotalHits     int               `json:"totalHits"`
	SearchType    string            `json:"searchType"`
	UsedReranking bool              `json:"usedReranking"`
	Aggregations  *aggregationsDTO  `json:"aggregations,omitempty"`
	SearchMetrics searchMetricsDTO  `json:"searchMetrics"`
}

// SearchTool handles POST /tool/search.
func (s *Server) SearchTool(w http.ResponseWriter, r *http.Request) {
	var req searchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	filters, err := filtersFromDTO(req.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	enableRerank := req.Options.EnableReranking == nil || *req.Options.EnableReranking
	searchReq, err := request.New(
		req.Query, filters, req.TopK,
		enableRerank, req.Options.IncludeAggregations, req.Options.IncludeHighlights,
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	out, err := s.search.Search(r.Context(), &searchReq)
	if err != nil {
		s.sink.SearchServed(searchuc.SearchTypeHybrid, false, false)
		s.handleDomainError(w, err)
		return
	}

	s.sink.SearchServed(out.SearchType, out.UsedReranking, true)
	writeJSON(w, http.StatusOK, searchResponseFromOutput(out))
}

type summarizeOptionsDTO struct {
	Style    string `json:"style,omitempty"`
	Tone     string `json:"tone,omitempty"`
	MaxWords int    `json:"maxWords,omitempty"`
}

type summarizeRequestDTO struct {
	Query     string              `json:"query"`
	Documents []documentDTO       `json:"documents"`
	Options   summarizeOptionsDTO `json:"options,omitempty"`
}

type summaryMetadataDTO struct {
	Model            string  `json:"model"`
	Temperature      float64 `json:"temperature"`
	Style            string  `json:"style"`
	Tone             string  `json:"tone"`
	GenerationTimeMs int64   `json:"generationTimeMs"`
	SourceCount      int     `json:"sourceCount"`
}

type summarizeResponseDTO struct {
	Summary         string              `json:"summary"`
	Citations       []citation.Citation `json:"citations"`
	SourceDocuments []documentDTO       `json:"sourceDocuments"`
	Metadata        summaryMetadataDTO  `json:"metadata"`
}

// SummarizeTool handles POST /tool/summarize. Citation extraction runs
// over the produced summary; the citation list may be empty when the
// summary shares no significant vocabulary with the sources.
func (s *Server) SummarizeTool(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	docs := documentsFromDTO(req.Documents)
	out, err := s.summarize.Summarize(r.Context(), req.Query, docs, summarizeuc.Options{
		Style:    req.Options.Style,
		Tone:     req.Options.Tone,
		MaxWords: req.Options.MaxWords,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	citations := cite.Extract(citeSourcesFromDocs(out.SourceDocuments), out.Summary)
	s.sink.CitationsExtracted(len(citations))

	writeJSON(w, http.StatusOK, summarizeResponseDTO{
		Summary:         out.Summary,
		Citations:       citations,
		SourceDocuments: documentsToDTO(out.SourceDocuments),
		Metadata: summaryMetadataDTO{
			Model:            out.Metadata.Model,
			Temperature:      out.Metadata.Temperature,
			Style:            out.Metadata.Style,
			Tone:             out.Metadata.Tone,
			GenerationTimeMs: out.Metadata.GenerationTime.Milliseconds(),
			SourceCount:      out.Metadata.SourceCount,
		},
	})
}

type citeSourceDTO struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Section string `json:"section,omitempty"`
}

type citeRequestDTO struct {
	SearchResults      []citeSourceDTO `json:"searchResults"`
	GeneratedText      string          `json:"generatedText"`
	Style              string          `json:"style,omitempty"`
	RequiredReferences int             `json:"requiredReferences,omitempty"`
}

type citeResponseDTO struct {
	Citations    []citation.Citation   `json:"citations"`
	Formatted    string                `json:"formatted"`
	CitedText    string                `json:"citedText"`
	Verification citation.Verification `json:"verification"`
}

// CiteTool handles POST /tool/cite.
func (s *Server) CiteTool(w http.ResponseWriter, r *http.Request) {
	var req citeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.GeneratedText == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "generatedText is required")
		return
	}

	sources := make([]cite.Source, len(req.SearchResults))
	for i, sr := range req.SearchResults {
		sources[i] = cite.Source{
			ID:      sr.ID,
			Title:   sr.Title,
			Content: sr.Content,
			Section: sr.Section,
		}
	}

	citations := cite.Extract(sources, req.GeneratedText)

	writeJSON(w, http.StatusOK, citeResponseDTO{
		Citations:    citations,
		Formatted:    cite.Format(citations, req.Style),
		CitedText:    cite.InjectInline(req.GeneratedText, citations),
		Verification: cite.Verify(req.GeneratedText, req.RequiredReferences),
	})
}

type compareOptionsDTO struct {
	IncludeMetadata      *bool `json:"includeMetadata,omitempty"`
	HighlightDifferences *bool `json:"highlightDifferences,omitempty"`
	GenerateSummary      *bool `json:"generateSummary,omitempty"`
}

type compareRequestDTO struct {
	Documents []documentDTO     `json:"documents"`
	Options   compareOptionsDTO `json:"options,omitempty"`
}

// CompareTool handles POST /tool/compare.
func (s *Server) CompareTool(w http.ResponseWriter, r *http.Request) {
	var req compareRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	out, err := s.compare.Compare(r.Context(), documentsFromDTO(req.Documents), compareuc.Options{
		IncludeMetadata:      req.Options.IncludeMetadata,
		HighlightDifferences: req.Options.HighlightDifferences,
		GenerateSummary:      req.Options.GenerateSummary,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

type analyzeOptionsDTO struct {
	IncludeSentiment *bool `json:"includeSentiment,omitempty"`
	IncludeEntities  *bool `json:"includeEntities,omitempty"`
	IncludeTopics    *bool `json:"includeTopics,omitempty"`
	IncludeInsights  *bool `json:"includeInsights,omitempty"`
}

type analyzeRequestDTO struct {
	Documents []documentDTO     `json:"documents"`
	Options   analyzeOptionsDTO `json:"options,omitempty"`
}

// AnalyzeTool handles POST /tool/analyze.
func (s *Server) AnalyzeTool(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	out, err := s.analyze.Analyze(r.Context(), documentsFromDTO(req.Documents), analyzeuc.Options{
		IncludeSentiment: req.Options.IncludeSentiment,
		IncludeEntities:  req.Options.IncludeEntities,
		IncludeTopics:    req.Options.IncludeTopics,
		IncludeInsights:  req.Options.IncludeInsights,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

type ingestItemDTO struct {
	ID         string    `json:"id,omitempty"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Summary    string    `json:"summary,omitempty"`
	Category   string    `json:"category,omitempty"`
	Department string    `json:"department,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Author     string    `json:"author,omitempty"`
	Date       time.Time `json:"date,omitempty"`
	SourceURL  string    `json:"sourceUrl,omitempty"`
}

type ingestRequestDTO struct {
	Documents []ingestItemDTO `json:"documents"`
}

type ingestItemResultDTO struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type ingestResponseDTO struct {
	Items     []ingestItemResultDTO `json:"items"`
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
}

// Ingest handles POST /ingest. Item failures are reported per item;
// the endpoint itself answers 200 as long as the batch was processable.
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "documents are required")
		return
	}

	inputs := make([]ingestuc.Input, len(req.Documents))
	for i, d := range req.Documents {
		inputs[i] = ingestuc.Input{
			ID:         d.ID,
			Title:      d.Title,
			Content:    d.Content,
			Summary:    d.Summary,
			Category:   d.Category,
			Department: d.Department,
			Tags:       d.Tags,
			Author:     d.Author,
			Date:       d.Date,
			SourceURL:  d.SourceURL,
		}
	}

	results := s.ingest.Ingest(r.Context(), inputs)

	succeeded, failed := 0, 0
	items := make([]ingestItemResultDTO, len(results))
	for i, res := range results {
		items[i] = ingestItemResultDTO{ID: res.ID(), Status: string(res.Status())}
		if res.Status() == domingest.StatusOK {
			succeeded++
		} else {
			failed++
			if res.Err() != nil {
				items[i].Error = res.Err().Error()
			}
		}
	}

	writeJSON(w, http.StatusOK, ingestResponseDTO{
		Items:     items,
		Succeeded: succeeded,
		Failed:    failed,
	})
}

type healthResponseDTO struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponseDTO{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrDocumentNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrRateLimited,
		domain.ErrModelProviderError,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func filtersFromDTO(dto *filtersDTO) (filter.Filters, error) {
	if dto == nil {
		return filter.Filters{}, nil
	}

	var dr filter.DateRange
	if dto.DateRange != nil {
		if dto.DateRange.Start != nil {
			dr.Start = *dto.DateRange.Start
		}
		if dto.DateRange.End != nil {
			dr.End = *dto.DateRange.End
		}
	}

	return filter.New(dr, dto.Categories, dto.Departments, dto.Tags)
}

func documentToDTO(d *domdoc.Document) documentDTO {
	return documentDTO{
		ID:         d.ID(),
		Title:      d.Title(),
		Content:    d.Content(),
		Summary:    d.Summary(),
		Category:   d.Category(),
		Department: d.Department(),
		Tags:       d.Tags(),
		Author:     d.Author(),
		Date:       d.Date(),
		SourceURL:  d.SourceURL(),
	}
}

func documentsToDTO(docs []domdoc.Document) []documentDTO {
	out := make([]documentDTO, len(docs))
	for i := range docs {
		out[i] = documentToDTO(&docs[i])
	}
	return out
}

// documentsFromDTO rebuilds domain documents from a caller-supplied
// listing (typically prior search results). No validation: the
// usecases reject what they cannot work with.
func documentsFromDTO(dtos []documentDTO) []domdoc.Document {
	docs := make([]domdoc.Document, len(dtos))
	for i, d := range dtos {
		docs[i] = domdoc.Reconstruct(
			d.ID, d.Title, d.Content, d.Summary, d.Category, d.Department,
			d.Tags, d.Author, d.Date, d.SourceURL, nil,
		)
	}
	return docs
}

func citeSourcesFromDocs(docs []domdoc.Document) []cite.Source {
	sources := make([]cite.Source, len(docs))
	for i := range docs {
		sources[i] = cite.Source{
			ID:      docs[i].ID(),
			Title:   docs[i].Title(),
			Content: docs[i].Content(),
		}
	}
	return sources
}

func searchResponseFromOutput(out *searchuc.Output) searchResponseDTO {
	items := make([]searchResultDTO, len(out.Results))
	for i := range out.Results {
		items[i] = rankedToDTO(&out.Results[i])
	}

	resp := searchResponseDTO{
		Results:       items,
		TotalHits:     out.TotalHits,
		SearchType:    out.SearchType,
		UsedReranking: out.UsedReranking,
		SearchMetrics: searchMetricsDTO{TookMs: out.Took.Milliseconds()},
	}
	if out.Facets != nil {
		resp.Aggregations = &aggregationsDTO{
			Categories:  out.Facets.Categories,
			Departments: out.Facets.Departments,
			Tags:        out.Facets.Tags,
			Months:      out.Facets.Months,
		}
	}
	return resp
}

func rankedToDTO(r *result.Ranked) searchResultDTO {
	dto := searchResultDTO{
		ID:            r.ID(),
		Score:         r.Score(),
		Confidence:    r.Confidence(),
		CombinedScore: r.CombinedScore(),
		Document:      documentToDTO(r.Document()),
		Highlights:    r.Highlights(),
	}
	if r.Reranked() {
		score := r.RerankScore()
		dto.RerankScore = &score
	}
	return dto
}
