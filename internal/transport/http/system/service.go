package system

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"image-resizer-go/internal/platform/logging"
	"image-resizer-go/internal/platform/observability"
	httptransport "image-resizer-go/internal/transport/http"
	"image-resizer-go/internal/utils"
)

// StatsSource supplies batch counters; *observability.BatchStats implements it.
type StatsSource interface {
	Snapshot() observability.BatchStatsSnapshot
}

// Status is the body of GET /api/system/status.
type Status struct {
	Uptime        string                            `json:"uptime"`
	MemoryPercent float64                           `json:"memory_percent"`
	CPUPercent    float64                           `json:"cpu_percent"`
	Process       utils.ProcessStatus               `json:"process"`
	Observability bool                              `json:"observability"`
	Batches       *observability.BatchStatsSnapshot `json:"batches,omitempty"`
	Warnings      []string                          `json:"warnings,omitempty"`
}

type Service struct {
	logger  *logging.Logger
	stats   StatsSource
	started time.Time
	memory  func() (float64, error)
	cpu     func() (float64, error)
}

// NewService builds the status service. stats may be nil.
func NewService(logger *logging.Logger, stats StatsSource) *Service {
	return &Service{
		logger:  logger,
		stats:   stats,
		started: time.Now(),
		memory:  utils.GetSystemMemoryUsage,
		cpu:     utils.GetSystemCPUUsage,
	}
}

func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.GET("/system/status", s.handleStatus)
	s.logger.InfoTag("HTTP", "system routes registered")
	return nil
}

func (s *Service) handleStatus(c *gin.Context) {
	status := Status{
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		Process:       utils.GetProcessStatus(),
		Observability: observability.Enabled(),
	}

	if pct, err := s.memory(); err != nil {
		s.logger.WarnTag("SYSTEM", "memory usage unavailable: %v", err)
		status.Warnings = append(status.Warnings, "memory usage unavailable")
	} else {
		status.MemoryPercent = pct
	}
	if pct, err := s.cpu(); err != nil {
		s.logger.WarnTag("SYSTEM", "cpu usage unavailable: %v", err)
		status.Warnings = append(status.Warnings, "cpu usage unavailable")
	} else {
		status.CPUPercent = pct
	}
	if s.stats != nil {
		snap := s.stats.Snapshot()
		status.Batches = &snap
	}

	httptransport.RespondSuccess(c, http.StatusOK, status, "")
}
