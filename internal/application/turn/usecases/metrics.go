package usecases

import "time"

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// MetricsRecorder observes use case executions.
type MetricsRecorder interface {
	ObserveUseCase(useCase, outcome string, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveUseCase(string, string, time.Duration) {}

// observe records one execution of useCase that started at start.
func observe(m MetricsRecorder, useCase string, start time.Time, err error) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	m.ObserveUseCase(useCase, outcome, time.Since(start))
}
