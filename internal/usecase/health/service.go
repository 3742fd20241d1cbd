// Package health aggregates component health checks into a single report.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component is the health detail of one subsystem.
type Component struct {
	Status         CheckResult `json:"status"`
	TotalDocuments *int        `json:"total_documents,omitempty"`
	EmbeddingDim   int         `json:"embedding_dimension,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// Report aggregates health check results.
type Report struct {
	Status     Status               `json:"overall_status"`
	Components map[string]Component `json:"components"`
}

// Service coordinates health checks.
type Service struct {
	store        StorePinger
	counter      DocumentCounter
	embedding    EmbeddingChecker
	generator    GeneratorChecker
	embeddingDim int
}

// New creates a Service. embedding and generator can be nil; counter can be
// nil when the store exposes no document count.
func New(store StorePinger, counter DocumentCounter, embedding EmbeddingChecker, generator GeneratorChecker, embeddingDim int) *Service {
	return &Service{
		store:        store,
		counter:      counter,
		embedding:    embedding,
		generator:    generator,
		embeddingDim: embeddingDim,
	}
}

// Check runs health checks against all components. The store check fails on
// an unreachable backend; a reachable store with a failing count is reported
// degraded with the error attached.
func (s *Service) Check(ctx context.Context) Report {
	components := make(map[string]Component)

	components["vectorstore"] = s.checkStore(ctx)

	if s.embedding != nil {
		c := Component{Status: CheckOK, EmbeddingDim: s.embeddingDim}
		if err := s.embedding.HealthCheck(ctx); err != nil {
			c = Component{Status: CheckError, Error: err.Error()}
		}
		components["embeddings"] = c
	}

	if s.generator != nil {
		c := Component{Status: CheckOK}
		if err := s.generator.HealthCheck(ctx); err != nil {
			c = Component{Status: CheckError, Error: err.Error()}
		}
		components["llm"] = c
	}

	status := Healthy
	for _, c := range components {
		if c.Status == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Components: components}
}

func (s *Service) checkStore(ctx context.Context) Component {
	if err := s.store.Ping(ctx); err != nil {
		return Component{Status: CheckError, Error: err.Error()}
	}

	c := Component{Status: CheckOK}
	if s.counter != nil {
		count, err := s.counter.Count(ctx)
		if err != nil {
			return Component{Status: CheckError, Error: err.Error()}
		}
		c.TotalDocuments = &count
	}
	return c
}
