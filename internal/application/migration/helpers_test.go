package migration

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fiscaldesk/rateations/internal/domain/plan"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/logging"
	"github.com/fiscaldesk/rateations/pkg/errors"
	"github.com/fiscaldesk/rateations/pkg/types/common"
)

var rome = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		panic(err)
	}
	return loc
}()

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, rome)
}

func datePtr(t time.Time) *time.Time { return &t }

// fakeRepo is an in-memory plan.Repository.  WithTx snapshots all state and
// restores it when the callback fails, matching the all-or-nothing contract
// of the real store.
type fakeRepo struct {
	plans        map[int64]*plan.Plan
	installments map[int64]*plan.Installment
	debtLinks    map[string]*plan.PlanDebtLink
	readmission  map[int64]*plan.ReadmissionLink
	surcharge    map[int64]*plan.SurchargeLink
	nextID       int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		plans:        make(map[int64]*plan.Plan),
		installments: make(map[int64]*plan.Installment),
		debtLinks:    make(map[string]*plan.PlanDebtLink),
		readmission:  make(map[int64]*plan.ReadmissionLink),
		surcharge:    make(map[int64]*plan.SurchargeLink),
		nextID:       1000,
	}
}

func linkKey(planID, debtID int64) string { return fmt.Sprintf("%d/%d", planID, debtID) }

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) addPlan(p plan.Plan) *plan.Plan {
	cp := p
	f.plans[cp.ID] = &cp
	return &cp
}

func (f *fakeRepo) addInstallment(inst plan.Installment) *plan.Installment {
	cp := inst
	if cp.ID == 0 {
		cp.ID = f.id()
	}
	f.installments[cp.ID] = &cp
	return &cp
}

func (f *fakeRepo) addActiveDebtLink(planID, debtID int64) {
	f.debtLinks[linkKey(planID, debtID)] = &plan.PlanDebtLink{
		PlanID: planID, DebtID: debtID, Status: plan.LinkActive, CreatedAt: time.Now(),
	}
}

func notFound(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeNotFound, format, args...)
}

func (f *fakeRepo) CreatePlan(_ context.Context, p *plan.Plan) error {
	if p.ID == 0 {
		p.ID = f.id()
	}
	cp := *p
	f.plans[p.ID] = &cp
	return nil
}

func (f *fakeRepo) GetPlan(_ context.Context, id int64) (*plan.Plan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, notFound("plan %d", id)
	}
	cp := *p
	cp.MigratedDebtIDs = append([]int64(nil), p.MigratedDebtIDs...)
	return &cp, nil
}

func (f *fakeRepo) ListPlansByOwner(_ context.Context, ownerID string, _ ...plan.PlanQueryOption) ([]*plan.Plan, int64, error) {
	var out []*plan.Plan
	for _, p := range f.plans {
		if p.OwnerID == ownerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeRepo) UpdatePlanStatus(_ context.Context, id int64, status plan.Status, intr *plan.Interruption, decayedAt *time.Time) error {
	p, ok := f.plans[id]
	if !ok {
		return notFound("plan %d", id)
	}
	p.Status = status
	p.Interruption = intr
	p.DecayedAt = decayedAt
	return nil
}

func (f *fakeRepo) SetMigratedDebtIDs(_ context.Context, id int64, debtIDs []int64) error {
	p, ok := f.plans[id]
	if !ok {
		return notFound("plan %d", id)
	}
	p.MigratedDebtIDs = append([]int64(nil), debtIDs...)
	return nil
}

func (f *fakeRepo) UpdatePlanNote(_ context.Context, id int64, note string) error {
	p, ok := f.plans[id]
	if !ok {
		return notFound("plan %d", id)
	}
	p.Note = note
	return nil
}

func (f *fakeRepo) BatchCreateInstallments(_ context.Context, installments []*plan.Installment) error {
	for _, inst := range installments {
		if inst.ID == 0 {
			inst.ID = f.id()
		}
		cp := *inst
		f.installments[inst.ID] = &cp
	}
	return nil
}

func (f *fakeRepo) GetInstallment(_ context.Context, id int64) (*plan.Installment, error) {
	inst, ok := f.installments[id]
	if !ok {
		return nil, notFound("installment %d", id)
	}
	cp := *inst
	return &cp, nil
}

func (f *fakeRepo) GetInstallmentBySeq(_ context.Context, planID int64, seq int) (*plan.Installment, error) {
	for _, inst := range f.installments {
		if inst.PlanID == planID && inst.Seq == seq {
			cp := *inst
			return &cp, nil
		}
	}
	return nil, notFound("installment %d/%d", planID, seq)
}

func (f *fakeRepo) ListInstallmentsByPlan(_ context.Context, planID int64) ([]plan.Installment, error) {
	var out []plan.Installment
	for _, inst := range f.installments {
		if inst.PlanID == planID {
			out = append(out, *inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (f *fakeRepo) UpdateInstallmentPayment(_ context.Context, id int64, paid bool, paidDate *time.Time, mode plan.PaymentMode, penaltyCents, interestCents, totalPaidCents int64) error {
	inst, ok := f.installments[id]
	if !ok {
		return notFound("installment %d", id)
	}
	inst.Paid = paid
	inst.PaidDate = paidDate
	inst.PayMode = mode
	inst.PenaltyCents = penaltyCents
	inst.InterestCents = interestCents
	inst.TotalPaidWithPenaltyC = totalPaidCents
	return nil
}

func (f *fakeRepo) UpdateInstallmentDueDate(_ context.Context, id int64, dueDate time.Time, postponed bool) error {
	inst, ok := f.installments[id]
	if !ok {
		return notFound("installment %d", id)
	}
	d := dueDate
	inst.DueDate = &d
	inst.Postponed = postponed
	return nil
}

func (f *fakeRepo) GetDebt(_ context.Context, id int64) (*plan.Debt, error) {
	return nil, notFound("debt %d", id)
}

func (f *fakeRepo) GetDebtsByIDs(_ context.Context, ids []int64) ([]plan.Debt, error) {
	return nil, nil
}

func (f *fakeRepo) ListDebtLinksByPlan(_ context.Context, planID int64) ([]plan.PlanDebtLink, error) {
	var out []plan.PlanDebtLink
	for _, l := range f.debtLinks {
		if l.PlanID == planID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DebtID < out[j].DebtID })
	return out, nil
}

func (f *fakeRepo) GetActiveLinkByDebt(_ context.Context, debtID int64) (*plan.PlanDebtLink, error) {
	for _, l := range f.debtLinks {
		if l.DebtID == debtID && l.Status == plan.LinkActive {
			cp := *l
			return &cp, nil
		}
	}
	return nil, notFound("active link for debt %d", debtID)
}

func (f *fakeRepo) CreateDebtLink(_ context.Context, link *plan.PlanDebtLink) error {
	cp := *link
	f.debtLinks[linkKey(link.PlanID, link.DebtID)] = &cp
	return nil
}

func (f *fakeRepo) UpdateDebtLinkStatus(_ context.Context, planID, debtID int64, status plan.LinkStatus, migratedAt *time.Time) error {
	l, ok := f.debtLinks[linkKey(planID, debtID)]
	if !ok {
		return notFound("link %d/%d", planID, debtID)
	}
	l.Status = status
	l.MigratedAt = migratedAt
	return nil
}

func (f *fakeRepo) DeleteDebtLink(_ context.Context, planID, debtID int64) error {
	key := linkKey(planID, debtID)
	if _, ok := f.debtLinks[key]; !ok {
		return notFound("link %d/%d", planID, debtID)
	}
	delete(f.debtLinks, key)
	return nil
}

func (f *fakeRepo) CreateReadmissionLink(_ context.Context, link *plan.ReadmissionLink) error {
	if link.ID == 0 {
		link.ID = f.id()
	}
	cp := *link
	f.readmission[link.ID] = &cp
	return nil
}

func (f *fakeRepo) ListReadmissionLinksByPortal(_ context.Context, portalPlanID int64) ([]plan.ReadmissionLink, error) {
	var out []plan.ReadmissionLink
	for _, l := range f.readmission {
		if l.PortalPlanID == portalPlanID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) DeleteReadmissionLinks(_ context.Context, portalPlanID int64, targetIDs []int64) (int64, error) {
	targets := make(map[int64]bool, len(targetIDs))
	for _, id := range targetIDs {
		targets[id] = true
	}
	var removed int64
	for id, l := range f.readmission {
		if l.PortalPlanID != portalPlanID {
			continue
		}
		if len(targets) > 0 && !targets[l.ReadmissionPlanID] {
			continue
		}
		delete(f.readmission, id)
		removed++
	}
	return removed, nil
}

func (f *fakeRepo) CountReadmissionLinks(_ context.Context, portalPlanID int64) (int64, error) {
	var n int64
	for _, l := range f.readmission {
		if l.PortalPlanID == portalPlanID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CreateSurchargeLink(_ context.Context, link *plan.SurchargeLink) error {
	if link.ID == 0 {
		link.ID = f.id()
	}
	cp := *link
	f.surcharge[link.WithholdingPlanID] = &cp
	return nil
}

func (f *fakeRepo) GetSurchargeLinkByWithholding(_ context.Context, withholdingPlanID int64) (*plan.SurchargeLink, error) {
	l, ok := f.surcharge[withholdingPlanID]
	if !ok {
		return nil, notFound("surcharge link for plan %d", withholdingPlanID)
	}
	cp := *l
	return &cp, nil
}

func (f *fakeRepo) DeleteSurchargeLink(_ context.Context, withholdingPlanID int64) error {
	if _, ok := f.surcharge[withholdingPlanID]; !ok {
		return notFound("surcharge link for plan %d", withholdingPlanID)
	}
	delete(f.surcharge, withholdingPlanID)
	return nil
}

func (f *fakeRepo) snapshot() *fakeRepo {
	s := newFakeRepo()
	s.nextID = f.nextID
	for id, p := range f.plans {
		cp := *p
		cp.MigratedDebtIDs = append([]int64(nil), p.MigratedDebtIDs...)
		s.plans[id] = &cp
	}
	for id, inst := range f.installments {
		cp := *inst
		s.installments[id] = &cp
	}
	for k, l := range f.debtLinks {
		cp := *l
		s.debtLinks[k] = &cp
	}
	for id, l := range f.readmission {
		cp := *l
		s.readmission[id] = &cp
	}
	for id, l := range f.surcharge {
		cp := *l
		s.surcharge[id] = &cp
	}
	return s
}

func (f *fakeRepo) restore(s *fakeRepo) {
	f.nextID = s.nextID
	f.plans = s.plans
	f.installments = s.installments
	f.debtLinks = s.debtLinks
	f.readmission = s.readmission
	f.surcharge = s.surcharge
}

func (f *fakeRepo) WithTx(_ context.Context, fn func(plan.Repository) error) error {
	snap := f.snapshot()
	if err := fn(f); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

// recordingBus captures published events.
type recordingBus struct {
	events []common.DomainEvent
}

func (b *recordingBus) Publish(_ context.Context, evt common.DomainEvent) error {
	b.events = append(b.events, evt)
	return nil
}

func (b *recordingBus) lastAction() plan.ChangeAction {
	if len(b.events) == 0 {
		return ""
	}
	evt, ok := b.events[len(b.events)-1].(*plan.StateChangedEvent)
	if !ok {
		return ""
	}
	return evt.Action
}

// recordingCache captures invalidated plan ids.
type recordingCache struct {
	invalidated [][]int64
}

func (c *recordingCache) InvalidatePlans(_ context.Context, planIDs ...int64) error {
	c.invalidated = append(c.invalidated, planIDs)
	return nil
}

type fixture struct {
	repo  *fakeRepo
	bus   *recordingBus
	cache *recordingCache
	svc   *Service
}

func newFixture(now time.Time) *fixture {
	repo := newFakeRepo()
	bus := &recordingBus{}
	cache := &recordingCache{}
	svc := NewService(repo, bus, cache, logging.NewNopLogger(), rome, plan.KPIOptions{})
	svc.now = func() time.Time { return now }
	return &fixture{repo: repo, bus: bus, cache: cache, svc: svc}
}

func activeDebtSet(f *fakeRepo, planID int64) []int64 {
	links, _ := f.ListDebtLinksByPlan(context.Background(), planID)
	return plan.ActiveDebtIDs(links)
}
