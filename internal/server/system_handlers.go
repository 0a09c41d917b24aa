package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/dashboard/internal/database"
	"github.com/aristath/dashboard/internal/di"
	"github.com/aristath/dashboard/internal/scheduler"
)

// SystemHandlers serves process status and manual job triggers
type SystemHandlers struct {
	log       zerolog.Logger
	db        *database.DB
	cron      *scheduler.Scheduler
	jobs      map[string]scheduler.Job
	startedAt time.Time
	stats     func() (float64, float64)
}

// NewSystemHandlers creates new system handlers. jobs may be nil.
func NewSystemHandlers(log zerolog.Logger, db *database.DB, cron *scheduler.Scheduler, jobs *di.JobInstances) *SystemHandlers {
	h := &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		db:        db,
		cron:      cron,
		jobs:      make(map[string]scheduler.Job),
		startedAt: time.Now(),
	}
	h.stats = h.getSystemStats

	if jobs != nil {
		for _, job := range []scheduler.Job{jobs.ClientDataCleanup, jobs.CheckDatabase} {
			h.jobs[job.Name()] = job
		}
	}
	return h
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/system/status", h.HandleSystemStatus)
	r.Post("/jobs/{name}", h.HandleTriggerJob)
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.stats()

	dbStatus := "ok"
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.QuickCheck(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Client data database check failed")
		dbStatus = "unavailable"
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"uptime_seconds":    int64(time.Since(h.startedAt).Seconds()),
			"cpu_percent":       cpuPercent,
			"memory_percent":    memPercent,
			"goroutines":        runtime.NumGoroutine(),
			"database":          dbStatus,
			"scheduled_entries": h.cron.Len(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleTriggerJob handles POST /api/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	job, ok := h.jobs[name]
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job"})
		return
	}

	if err := h.cron.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status": "error",
			"job":    name,
			"error":  err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"job":    name,
	})
}

// getSystemStats returns CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// Sample over 100ms so the request stays fast
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
