package response

import (
	"time"

	"github.com/user/livecast-service/internal/entity"
)

// HealthResponse is a DTO for the service health, mirroring entity.Health.
type HealthResponse struct {
	Status              string     `json:"status"` // "ok" or "degraded"
	LastSuccessfulCycle *time.Time `json:"last_successful_cycle,omitempty"`
	LastCycleAt         *time.Time `json:"last_cycle_at,omitempty"`
	SuccessCount        int        `json:"success_count"`
	FailureCount        int        `json:"failure_count"`
}

func NewHealthResponse(h entity.Health) HealthResponse {
	return HealthResponse{
		Status:              h.Status,
		LastSuccessfulCycle: h.LastSuccessfulCycle,
		LastCycleAt:         h.LastCycleAt,
		SuccessCount:        h.SuccessCount,
		FailureCount:        h.FailureCount,
	}
}

type RefreshResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type FailuresResponse struct {
	Count    int                      `json:"count"`
	Failures []*entity.ChannelFailure `json:"failures"`
}
