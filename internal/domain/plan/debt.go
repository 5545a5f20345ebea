package plan

import "time"

// Debt is an atomic receivable (one tax roll entry) that can be attached to
// a plan through a PlanDebtLink.
type Debt struct {
	ID            int64     `json:"id"`
	Number        string    `json:"number"`
	Description   string    `json:"description,omitempty"`
	OriginalCents int64     `json:"original_cents"`
	ResidualCents int64     `json:"residual_cents"`
	CreatedAt     time.Time `json:"created_at"`
}

// LinkStatus is the state of a plan-debt attachment.
type LinkStatus string

const (
	LinkActive      LinkStatus = "ACTIVE"
	LinkMigratedOut LinkStatus = "MIGRATED_OUT"
	LinkMigratedIn  LinkStatus = "MIGRATED_IN"
)

// PlanDebtLink attaches a debt to a plan.  A debt may hold at most one
// ACTIVE link at a time; migration flips the source link to MIGRATED_OUT and
// creates an ACTIVE link under the target with MigratedIn set for audit.
type PlanDebtLink struct {
	PlanID int64      `json:"plan_id"`
	DebtID int64      `json:"debt_id"`
	Status LinkStatus `json:"status"`

	// MigratedIn marks a link created by a debt migration (audit trail).
	MigratedIn bool `json:"migrated_in"`

	// MigratedAt is set when the link leaves or enters a plan by migration.
	MigratedAt *time.Time `json:"migrated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ActiveDebtIDs filters the ACTIVE links of a plan into a sorted-input id
// slice (order preserved from the input).
func ActiveDebtIDs(links []PlanDebtLink) []int64 {
	var ids []int64
	for _, l := range links {
		if l.Status == LinkActive {
			ids = append(ids, l.DebtID)
		}
	}
	return ids
}
