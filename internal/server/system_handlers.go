package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStatusResponse is the payload of GET /api/system/status.
type SystemStatusResponse struct {
	Status       string     `json:"status"`
	CPUPercent   float64    `json:"cpu_percent"`
	MemPercent   float64    `json:"memory_percent"`
	Destinations int        `json:"destinations"`
	Busy         bool       `json:"busy"`
	LastRunID    string     `json:"last_run_id,omitempty"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
	NextRunAt    *time.Time `json:"next_run_at,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

// SystemHandlers serves host and relay status.
type SystemHandlers struct {
	log          zerolog.Logger
	runs         RunService
	schedule     Schedule
	destinations int
	stats        func() (cpuPercent, memPercent float64)
}

// NewSystemHandlers creates system handlers. schedule may be nil.
func NewSystemHandlers(log zerolog.Logger, runs RunService, schedule Schedule, destinations int) *SystemHandlers {
	h := &SystemHandlers{
		log:          log.With().Str("handlers", "system").Logger(),
		runs:         runs,
		schedule:     schedule,
		destinations: destinations,
	}
	h.stats = h.getSystemStats
	return h
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.stats()

	response := SystemStatusResponse{
		Status:       "ok",
		CPUPercent:   cpuPercent,
		MemPercent:   memPercent,
		Destinations: h.destinations,
		Busy:         h.runs.Busy(),
		Timestamp:    time.Now().UTC(),
	}

	if last := h.runs.Last(); last != nil {
		response.LastRunID = last.RunID
		finished := last.FinishedAt
		response.LastRunAt = &finished
	}
	if h.schedule != nil {
		if next := h.schedule.NextRun(); !next.IsZero() {
			response.NextRunAt = &next
		}
	}

	writeJSON(w, http.StatusOK, response, h.log)
}

// getSystemStats returns CPU and memory usage percentages. Failures are
// logged and reported as zero.
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
		return firstOrZero(cpuPercent), 0
	}

	return firstOrZero(cpuPercent), memStat.UsedPercent
}

func firstOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[0]
}
