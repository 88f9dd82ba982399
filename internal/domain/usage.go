package domain

import "time"

// UsageEntry tracks consumption of one plan metric. CurrentUsage reflects
// either confirmed server truth or server truth plus a single outstanding
// optimistic delta (Provisional set).
type UsageEntry struct {
	MetricName   string     `json:"metric_name"`
	CurrentUsage int        `json:"current_usage"`
	Limit        int        `json:"limit"`
	PlanName     string     `json:"plan_name,omitempty"`
	PeriodStart  *time.Time `json:"period_start,omitempty"`
	PeriodEnd    *time.Time `json:"period_end,omitempty"`
	Provisional  bool       `json:"provisional,omitempty"`
}

// Remaining returns the quota left on the entry, clamped at zero.
func (e UsageEntry) Remaining() int {
	if e.Limit <= e.CurrentUsage {
		return 0
	}
	return e.Limit - e.CurrentUsage
}
