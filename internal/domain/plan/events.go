package plan

import (
	"strconv"

	"github.com/fiscaldesk/rateations/pkg/types/common"
)

// ChangeAction names what happened; it is advisory only.  Consumers must
// re-fetch the affected plans rather than trust the event contents.
type ChangeAction string

const (
	ActionPlanCreated          ChangeAction = "plan_created"
	ActionDebtsMigrated        ChangeAction = "debts_migrated"
	ActionMigrationRolledBack  ChangeAction = "migration_rolled_back"
	ActionPlanAttached         ChangeAction = "plan_attached"
	ActionPlanDetached         ChangeAction = "plan_detached"
	ActionSurchargeLinked      ChangeAction = "surcharge_linked"
	ActionSurchargeUnlinked    ChangeAction = "surcharge_unlinked"
	ActionInstallmentPaid      ChangeAction = "installment_paid"
	ActionInstallmentUnpaid    ChangeAction = "installment_unpaid"
	ActionInstallmentPostponed ChangeAction = "installment_postponed"
	ActionDecayConfirmed       ChangeAction = "decay_confirmed"
)

// StateChangedEvent is the single broadcast published after every successful
// mutating call.  PlanIDs lists every plan whose numbers may have moved; a
// migration touches two at once.
type StateChangedEvent struct {
	common.BaseEvent
	Action  ChangeAction `json:"action"`
	PlanIDs []int64      `json:"plan_ids"`
}

// NewStateChangedEvent builds the broadcast for the given plans.  The first
// plan id doubles as the aggregate key so related events shard together.
func NewStateChangedEvent(action ChangeAction, planIDs ...int64) *StateChangedEvent {
	agg := ""
	if len(planIDs) > 0 {
		agg = strconv.FormatInt(planIDs[0], 10)
	}
	return &StateChangedEvent{
		BaseEvent: common.NewBaseEvent(agg),
		Action:    action,
		PlanIDs:   planIDs,
	}
}
