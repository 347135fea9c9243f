package admin

import (
	"time"

	"doccenter/internal/lending/sweeper"
)

// SweepResponse is the HTTP response DTO for a manual sweep.
type SweepResponse struct {
	RanAt         time.Time `json:"ran_at"`
	Scanned       int       `json:"scanned"`
	MarkedOverdue int       `json:"marked_overdue"`
	Reminded      int       `json:"reminded"`
	DueSoon       int       `json:"due_soon"`
	Failed        int       `json:"failed"`
}

func FromResult(at time.Time, res sweeper.Result) SweepResponse {
	return SweepResponse{
		RanAt:         at,
		Scanned:       res.Scanned,
		MarkedOverdue: res.MarkedOverdue,
		Reminded:      res.Reminded,
		DueSoon:       res.DueSoon,
		Failed:        res.Failed,
	}
}
