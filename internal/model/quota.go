// internal/model/quota.go
package model

import "time"

// ResourceKind is one independently metered daily allowance.
type ResourceKind string

const (
	KindRecipientSearch ResourceKind = "recipient_search"
	KindDispatch        ResourceKind = "dispatch"
	KindConnection      ResourceKind = "connection"
	KindTemplate        ResourceKind = "template"
)

// QuotaState is a per-operator, per-kind daily allowance. Used may
// transiently exceed Limit under fallback accounting; the next successful
// usage read overwrites local counters.
type QuotaState struct {
	ResourceKind ResourceKind `db:"resource_kind" json:"resource_kind"`
	Limit        int          `db:"daily_limit" json:"limit"`
	Used         int          `db:"used" json:"used"`
	DailyBonus   int          `db:"daily_bonus" json:"daily_bonus"`
	ResetAt      time.Time    `db:"reset_at" json:"reset_at"`
}

// Remaining reports what is left of the allowance, never negative.
func (q QuotaState) Remaining() int {
	r := q.Limit + q.DailyBonus - q.Used
	if r < 0 {
		return 0
	}
	return r
}
