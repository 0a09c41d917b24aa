package refresh

import (
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultHistorySize is how many finished sessions are retained.
const DefaultHistorySize = 50

// Run is one finished poll session.
type Run struct {
	SessionID        string    `json:"session_id"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	DurationSeconds  float64   `json:"duration_seconds"`
	Outcome          Outcome   `json:"outcome"`
	TotalBatches     int       `json:"total_batches"`
	CompletedSymbols int       `json:"completed_symbols"`
	TotalSymbols     int       `json:"total_symbols"`
}

// HistoryStats summarizes retained runs.
type HistoryStats struct {
	Count                 int     `json:"count"`
	Completed             int     `json:"completed"`
	TimedOut              int     `json:"timed_out"`
	MeanDurationSeconds   float64 `json:"mean_duration_seconds"`
	StdDevDurationSeconds float64 `json:"stddev_duration_seconds"`
	MeanCompletedSymbols  float64 `json:"mean_completed_symbols"`
}

// HistoryReport is the newest-first run list plus its statistics.
type HistoryReport struct {
	Runs  []Run        `json:"runs"`
	Stats HistoryStats `json:"stats"`
}

// History keeps the most recent finished runs in memory.
type History struct {
	mu   sync.Mutex
	size int
	runs []Run
}

// NewHistory creates a history retaining at most size runs.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size}
}

// Record appends a run, evicting the oldest when full.
func (h *History) Record(run Run) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, run)
	if len(h.runs) > h.size {
		h.runs = h.runs[len(h.runs)-h.size:]
	}
}

// Report returns runs newest first with summary statistics.
func (h *History) Report() HistoryReport {
	h.mu.Lock()
	runs := make([]Run, len(h.runs))
	copy(runs, h.runs)
	h.mu.Unlock()

	report := HistoryReport{Runs: make([]Run, 0, len(runs))}
	durations := make([]float64, 0, len(runs))
	symbols := make([]float64, 0, len(runs))

	for i := len(runs) - 1; i >= 0; i-- {
		run := runs[i]
		report.Runs = append(report.Runs, run)
		durations = append(durations, run.DurationSeconds)
		switch run.Outcome {
		case OutcomeCompleted:
			report.Stats.Completed++
			symbols = append(symbols, float64(run.CompletedSymbols))
		case OutcomeTimedOut:
			report.Stats.TimedOut++
		}
	}

	report.Stats.Count = len(runs)
	if len(durations) > 0 {
		report.Stats.MeanDurationSeconds = stat.Mean(durations, nil)
	}
	if len(durations) > 1 {
		report.Stats.StdDevDurationSeconds = finite(stat.StdDev(durations, nil))
	}
	if len(symbols) > 0 {
		report.Stats.MeanCompletedSymbols = stat.Mean(symbols, nil)
	}
	return report
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
