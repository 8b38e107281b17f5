// Package source provides shared decorators for candidate source adapters:
// resilience (retry, breaker, rate limit) and fetch instrumentation.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/dmarkin/fusionrag/internal/core/domain"
	"github.com/dmarkin/fusionrag/internal/core/ports"
	"github.com/dmarkin/fusionrag/internal/infrastructure/resilience"
)

// Resilient routes Fetch through an executor and reports any final failure
// as a source outage. The fusion layer treats an unavailable source as an
// empty contribution, so the unified error kind is what matters here.
type Resilient struct {
	inner      ports.CandidateSource
	executor   *resilience.Executor
	classifier resilience.ErrorClassifier
}

func NewResilient(inner ports.CandidateSource, executor *resilience.Executor, classifier resilience.ErrorClassifier) *Resilient {
	if classifier == nil {
		classifier = classifyFetchError
	}
	return &Resilient{inner: inner, executor: executor, classifier: classifier}
}

// classifyFetchError is the default treatment for backend failures: anything
// but cancellation is worth one more attempt within the fetch deadline and
// counts against the breaker.
func classifyFetchError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}

func (s *Resilient) Name() string { return s.inner.Name() }

func (s *Resilient) Fetch(ctx context.Context, query string, limit int) (domain.RankedList, error) {
	var list domain.RankedList
	call := func(ctx context.Context) error {
		var err error
		list, err = s.inner.Fetch(ctx, query, limit)
		return err
	}

	var err error
	if s.executor != nil {
		err = s.executor.Execute(ctx, "source."+s.inner.Name(), call, s.classifier)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.RankedList{}, domain.WrapError(domain.ErrSourceUnavailable, "fetch from "+s.inner.Name(), err)
	}
	return list, nil
}

// FetchObserver receives one measurement per completed fetch.
type FetchObserver interface {
	ObserveSourceFetch(source string, duration time.Duration, items int, err error)
}

// Instrumented reports fetch latency and result size to an observer.
type Instrumented struct {
	inner    ports.CandidateSource
	observer FetchObserver
}

func NewInstrumented(inner ports.CandidateSource, observer FetchObserver) *Instrumented {
	return &Instrumented{inner: inner, observer: observer}
}

func (s *Instrumented) Name() string { return s.inner.Name() }

func (s *Instrumented) Fetch(ctx context.Context, query string, limit int) (domain.RankedList, error) {
	start := time.Now()
	list, err := s.inner.Fetch(ctx, query, limit)
	if s.observer != nil {
		s.observer.ObserveSourceFetch(s.inner.Name(), time.Since(start), len(list.Items), err)
	}
	return list, err
}
