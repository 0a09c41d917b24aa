package dashboard

import "fmt"

// DefaultTotalBatches is assumed when a submit response does not say how
// many batches the server will process.
const DefaultTotalBatches = 2

// JobStatus is the server-owned state of the price refresh job.
// It is overwritten in place on every read.
type JobStatus struct {
	IsRunning        bool    `json:"is_running" msgpack:"is_running"`
	TotalSymbols     int     `json:"total_symbols" msgpack:"total_symbols"`
	CompletedSymbols int     `json:"completed_symbols" msgpack:"completed_symbols"`
	MinutesRemaining float64 `json:"minutes_remaining" msgpack:"minutes_remaining"`
	ProgressPercent  float64 `json:"progress_percent" msgpack:"progress_percent"`
	StatusMessage    string  `json:"status_message" msgpack:"status_message"`
	Error            *string `json:"error" msgpack:"error"`
	// TotalBatches is only present on submission responses.
	TotalBatches int `json:"total_batches,omitempty" msgpack:"total_batches,omitempty"`
}

// Clone returns a deep copy.
func (s *JobStatus) Clone() *JobStatus {
	if s == nil {
		return nil
	}
	out := *s
	if s.Error != nil {
		msg := *s.Error
		out.Error = &msg
	}
	return &out
}

// SubmitResult is the parsed response of a refresh submission.
type SubmitResult struct {
	Status       *JobStatus
	TotalBatches int
}

// APIError is returned when the backend answers with a non-2xx status.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

type statusEnvelope struct {
	Status       *JobStatus `json:"status"`
	TotalBatches int        `json:"total_batches,omitempty"`
}

type realtimePricingResponse struct {
	Enabled bool `json:"enabled"`
}

type providerStatusResponse struct {
	IsConfigured bool `json:"is_configured"`
}
