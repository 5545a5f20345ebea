package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		plan    Plan
		wantErr bool
	}{
		{
			name: "valid active plan",
			plan: Plan{ID: 1, Kind: KindPortal, Status: StatusActive},
		},
		{
			name:    "missing id",
			plan:    Plan{Kind: KindPortal, Status: StatusActive},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			plan:    Plan{ID: 1, Kind: Kind("BANK_LOAN"), Status: StatusActive},
			wantErr: true,
		},
		{
			name:    "interrupted without reference",
			plan:    Plan{ID: 1, Kind: KindPortal, Status: StatusInterrupted},
			wantErr: true,
		},
		{
			name: "interrupted with reference",
			plan: Plan{ID: 1, Kind: KindPortal, Status: StatusInterrupted, Interruption: &Interruption{At: now, ByPlanID: 9}},
		},
		{
			name:    "decayed without timestamp",
			plan:    Plan{ID: 1, Kind: KindWithholding, Status: StatusDecayed},
			wantErr: true,
		},
		{
			name: "decayed with timestamp",
			plan: Plan{ID: 1, Kind: KindWithholding, Status: StatusDecayed, DecayedAt: &now},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPlanInterruptAndReactivate(t *testing.T) {
	now := time.Now()
	p := Plan{ID: 1, Kind: KindPortal, Status: StatusActive}

	require.NoError(t, p.Interrupt(42, "folded into readmission", now))
	assert.Equal(t, StatusInterrupted, p.Status)
	require.NotNil(t, p.Interruption)
	assert.Equal(t, int64(42), p.Interruption.ByPlanID)

	// Re-interrupting an interrupted plan is not a legal transition.
	assert.Error(t, p.Interrupt(43, "", now))

	require.NoError(t, p.Reactivate(now))
	assert.Equal(t, StatusActive, p.Status)
	assert.Nil(t, p.Interruption)
}

func TestPlanConfirmDecay(t *testing.T) {
	now := time.Now()
	p := Plan{ID: 1, Kind: KindWithholding, Status: StatusActive}

	require.NoError(t, p.ConfirmDecay(now))
	assert.Equal(t, StatusDecayed, p.Status)
	require.NotNil(t, p.DecayedAt)

	// Decay is terminal except for the surcharge-unlink restore path.
	assert.Error(t, p.ConfirmDecay(now))
	assert.True(t, p.CanTransition(StatusActive))
	require.NoError(t, p.Reactivate(now))
	assert.Nil(t, p.DecayedAt)
}

func TestPlanTerminalStatuses(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusExtinguished} {
		p := Plan{ID: 1, Kind: KindPortal, Status: status}
		assert.False(t, p.CanTransition(StatusActive), "from %s", status)
		assert.False(t, p.CanTransition(StatusDecayed), "from %s", status)
	}
}

func TestGenerateSchedule(t *testing.T) {
	first := day(2026, time.January, 31)

	t.Run("monthly", func(t *testing.T) {
		out, err := GenerateSchedule(5, first, FreqMonthly, 3, 10000)
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.Equal(t, 1, out[0].Seq)
		assert.True(t, out[0].DueDate.Equal(first))
		// January 31 plus one month normalizes into March.
		assert.Equal(t, time.March, out[1].DueDate.Month())
		assert.Equal(t, 3, out[2].Seq)
		for _, inst := range out {
			assert.Equal(t, int64(5), inst.PlanID)
			assert.Equal(t, int64(10000), inst.AmountCents)
		}
	})

	t.Run("quarterly spacing", func(t *testing.T) {
		start := day(2026, time.January, 15)
		out, err := GenerateSchedule(5, start, FreqQuarterly, 4, 2500)
		require.NoError(t, err)
		assert.True(t, out[3].DueDate.Equal(day(2026, time.October, 15)))
	})

	t.Run("rejects bad inputs", func(t *testing.T) {
		_, err := GenerateSchedule(5, first, Frequency("WEEKLY"), 3, 100)
		assert.Error(t, err)
		_, err = GenerateSchedule(5, first, FreqMonthly, 0, 100)
		assert.Error(t, err)
		_, err = GenerateSchedule(5, first, FreqMonthly, 3, 0)
		assert.Error(t, err)
		_, err = GenerateSchedule(5, time.Time{}, FreqMonthly, 3, 100)
		assert.Error(t, err)
	})
}

func TestValidateSchedule(t *testing.T) {
	t.Run("accepts contiguous sequence", func(t *testing.T) {
		out, err := GenerateSchedule(5, day(2026, time.January, 10), FreqMonthly, 4, 100)
		require.NoError(t, err)
		assert.NoError(t, ValidateSchedule(5, out))
	})

	t.Run("rejects gaps and duplicates", func(t *testing.T) {
		assert.Error(t, ValidateSchedule(5, nil))
		assert.Error(t, ValidateSchedule(5, []Installment{{Seq: 1, AmountCents: 100}, {Seq: 3, AmountCents: 100}}))
		assert.Error(t, ValidateSchedule(5, []Installment{{Seq: 1, AmountCents: 100}, {Seq: 1, AmountCents: 100}}))
		assert.Error(t, ValidateSchedule(5, []Installment{{Seq: 1, AmountCents: 0}}))
	})
}

func TestInstallmentPostpone(t *testing.T) {
	due := day(2026, time.April, 30)

	t.Run("moves the due date forward", func(t *testing.T) {
		inst := Installment{PlanID: 1, Seq: 2, DueDate: datePtr(due), AmountCents: 100}
		newDue := day(2026, time.June, 30)
		require.NoError(t, inst.Postpone(newDue))
		assert.True(t, inst.DueDate.Equal(newDue))
		assert.True(t, inst.Postponed)

		// The rewritten date now governs overdue; before it the row is OPEN.
		res := Resolve(inst, StatusActive, day(2026, time.May, 15), rome)
		assert.Equal(t, StatusOpen, res.EffectiveStatus)
		res = Resolve(inst, StatusActive, day(2026, time.July, 2), rome)
		assert.Equal(t, StatusOverdue, res.EffectiveStatus)
	})

	t.Run("rejects paid and backward moves", func(t *testing.T) {
		paid := Installment{PlanID: 1, Seq: 1, DueDate: datePtr(due), Paid: true}
		assert.Error(t, paid.Postpone(due.AddDate(0, 1, 0)))

		inst := Installment{PlanID: 1, Seq: 2, DueDate: datePtr(due)}
		assert.Error(t, inst.Postpone(due))
		assert.Error(t, inst.Postpone(due.AddDate(0, 0, -1)))
	})
}

func TestSurchargeQuote(t *testing.T) {
	t.Run("extra cost", func(t *testing.T) {
		q := QuoteSurcharge(40000, 55000)
		assert.Equal(t, int64(15000), q.DeltaCents)
		assert.Equal(t, int64(15000), SurchargeFromQuote(q))
	})

	t.Run("saving floors to zero when stored", func(t *testing.T) {
		q := QuoteSurcharge(55000, 40000)
		assert.Equal(t, int64(-15000), q.DeltaCents)
		assert.Zero(t, SurchargeFromQuote(q))
	})

	t.Run("break even", func(t *testing.T) {
		q := QuoteSurcharge(40000, 40000)
		assert.Zero(t, q.DeltaCents)
		assert.Zero(t, SurchargeFromQuote(q))
	})
}

func TestActiveDebtIDs(t *testing.T) {
	links := []PlanDebtLink{
		{PlanID: 1, DebtID: 10, Status: LinkActive},
		{PlanID: 1, DebtID: 11, Status: LinkMigratedOut},
		{PlanID: 1, DebtID: 12, Status: LinkActive},
	}
	assert.Equal(t, []int64{10, 12}, ActiveDebtIDs(links))
	assert.Nil(t, ActiveDebtIDs(nil))
}
