package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component check names.
const (
	CheckStore      = "store"
	CheckModel      = "model"
	CheckTextSearch = "text_search"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks across the store and the model
// provider.
type Service struct {
	store  StorePinger
	model  ModelChecker
	search TextSearchProber
}

// New creates a Service. model and search can be nil.
func New(store StorePinger, model ModelChecker, search TextSearchProber) *Service {
	return &Service{store: store, model: model, search: search}
}

// Check runs health checks against all components. Any failing check
// degrades the aggregate status; the endpoint itself never errors.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.store.Ping(ctx); err != nil {
		checks[CheckStore] = CheckError
	} else {
		checks[CheckStore] = CheckOK
	}

	if s.model != nil {
		if err := s.model.HealthCheck(ctx); err != nil {
			checks[CheckModel] = CheckError
		} else {
			checks[CheckModel] = CheckOK
		}
	}

	if s.search != nil {
		if s.search.SupportsTextSearch(ctx) {
			checks[CheckTextSearch] = CheckOK
		} else {
			checks[CheckTextSearch] = CheckError
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
