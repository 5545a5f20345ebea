package repositories

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/fiscaldesk/rateations/internal/domain/plan"
	"github.com/fiscaldesk/rateations/internal/infrastructure/database/postgres"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/logging"
	"github.com/fiscaldesk/rateations/pkg/errors"
)

// postgresPlanRepo implements plan.Repository on the relational store.  All
// fields that the domain treats as optional come back as sql null types and
// are normalized here, at the adapter boundary; nothing beyond this file ever
// sees a sql.Null value.
type postgresPlanRepo struct {
	baseRepo
}

// NewPostgresPlanRepo builds the production repository.
func NewPostgresPlanRepo(conn *postgres.Connection, log logging.Logger) plan.Repository {
	return &postgresPlanRepo{baseRepo: baseRepo{conn: conn, log: log}}
}

// WithTx runs fn against a transaction-bound copy of the repository.  The
// transaction commits only when fn returns nil; any error rolls everything
// back, so callers never observe partial application.
func (r *postgresPlanRepo) WithTx(ctx context.Context, fn func(plan.Repository) error) error {
	if r.tx != nil {
		// Already inside a transaction; re-entrant calls share it.
		return fn(r)
	}
	tx, err := r.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	txRepo := &postgresPlanRepo{baseRepo: baseRepo{conn: r.conn, tx: tx, log: r.log}}
	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.log.Error("transaction rollback failed", logging.Err(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	return nil
}

// --- Plans ---

const planColumns = `
	id, number, kind, taxpayer_id, owner_id, total_cents, status,
	interrupted_at, interrupted_reason, interrupted_by_plan_id,
	decayed_at, migrated_debt_ids, note, created_at, updated_at
`

func scanPlan(s scanner) (*plan.Plan, error) {
	var (
		p               plan.Plan
		taxpayerID      sql.NullString
		interruptedAt   sql.NullTime
		interruptReason sql.NullString
		interruptedBy   sql.NullInt64
		decayedAt       sql.NullTime
		migratedIDs     pq.Int64Array
		note            sql.NullString
	)
	err := s.Scan(
		&p.ID, &p.Number, &p.Kind, &taxpayerID, &p.OwnerID, &p.TotalCents, &p.Status,
		&interruptedAt, &interruptReason, &interruptedBy,
		&decayedAt, &migratedIDs, &note, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.TaxpayerID = taxpayerID.String
	p.Note = note.String
	if interruptedAt.Valid {
		p.Interruption = &plan.Interruption{
			At:       interruptedAt.Time,
			Reason:   interruptReason.String,
			ByPlanID: interruptedBy.Int64,
		}
	}
	if decayedAt.Valid {
		t := decayedAt.Time
		p.DecayedAt = &t
	}
	p.MigratedDebtIDs = []int64(migratedIDs)
	return &p, nil
}

func (r *postgresPlanRepo) CreatePlan(ctx context.Context, p *plan.Plan) error {
	query := `
		INSERT INTO plans (
			number, kind, taxpayer_id, owner_id, total_cents, status,
			migrated_debt_ids, note
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.executor().QueryRowContext(ctx, query,
		p.Number, p.Kind, nullString(p.TaxpayerID), p.OwnerID, p.TotalCents, p.Status,
		pq.Array(p.MigratedDebtIDs), nullString(p.Note),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert plan")
	}
	return nil
}

func (r *postgresPlanRepo) GetPlan(ctx context.Context, id int64) (*plan.Plan, error) {
	row := r.executor().QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodePlanNotFound, "plan %d not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query plan")
	}
	return p, nil
}

func (r *postgresPlanRepo) ListPlansByOwner(ctx context.Context, ownerID string, opts ...plan.PlanQueryOption) ([]*plan.Plan, int64, error) {
	options := plan.ApplyPlanOptions(opts...)

	where := ` WHERE owner_id = $1`
	args := []interface{}{ownerID}
	if options.Kind != "" {
		args = append(args, options.Kind)
		where += ` AND kind = $2`
	}
	if options.Status != "" {
		args = append(args, options.Status)
		if options.Kind != "" {
			where += ` AND status = $3`
		} else {
			where += ` AND status = $2`
		}
	}

	var total int64
	if err := r.executor().QueryRowContext(ctx, `SELECT COUNT(*) FROM plans`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count plans")
	}

	query := `SELECT ` + planColumns + ` FROM plans` + where + ` ORDER BY id`
	args = append(args, options.Limit, options.Offset)
	query += limitOffsetClause(len(args))

	rows, err := r.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list plans")
	}
	defer rows.Close()

	var out []*plan.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan plan row")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "plan row iteration failed")
	}
	return out, total, nil
}

func (r *postgresPlanRepo) UpdatePlanStatus(ctx context.Context, id int64, status plan.Status, intr *plan.Interruption, decayedAt *time.Time) error {
	var (
		interruptedAt sql.NullTime
		reason        sql.NullString
		byPlanID      sql.NullInt64
	)
	if intr != nil {
		interruptedAt = sql.NullTime{Time: intr.At, Valid: true}
		reason = sql.NullString{String: intr.Reason, Valid: intr.Reason != ""}
		byPlanID = sql.NullInt64{Int64: intr.ByPlanID, Valid: true}
	}
	query := `
		UPDATE plans SET
			status = $2,
			interrupted_at = $3, interrupted_reason = $4, interrupted_by_plan_id = $5,
			decayed_at = $6,
			updated_at = NOW()
		WHERE id = $1
	`
	return r.execExpectingRow(ctx, query, "plan", id, status, interruptedAt, reason, byPlanID, nullTime(decayedAt))
}

func (r *postgresPlanRepo) SetMigratedDebtIDs(ctx context.Context, id int64, debtIDs []int64) error {
	query := `UPDATE plans SET migrated_debt_ids = $2, updated_at = NOW() WHERE id = $1`
	return r.execExpectingRow(ctx, query, "plan", id, pq.Array(debtIDs))
}

func (r *postgresPlanRepo) UpdatePlanNote(ctx context.Context, id int64, note string) error {
	query := `UPDATE plans SET note = $2, updated_at = NOW() WHERE id = $1`
	return r.execExpectingRow(ctx, query, "plan", id, nullString(note))
}

// --- Installments ---

const installmentColumns = `
	id, plan_id, seq, due_date, amount_cents, paid, paid_date, pay_mode,
	penalty_cents, interest_cents, total_paid_cents, postponed
`

func scanInstallment(s scanner) (*plan.Installment, error) {
	var (
		inst     plan.Installment
		dueDate  sql.NullTime
		paidDate sql.NullTime
		payMode  sql.NullString
	)
	err := s.Scan(
		&inst.ID, &inst.PlanID, &inst.Seq, &dueDate, &inst.AmountCents,
		&inst.Paid, &paidDate, &payMode,
		&inst.PenaltyCents, &inst.InterestCents, &inst.TotalPaidWithPenaltyC, &inst.Postponed,
	)
	if err != nil {
		return nil, err
	}
	if dueDate.Valid {
		t := dueDate.Time
		inst.DueDate = &t
	}
	if paidDate.Valid {
		t := paidDate.Time
		inst.PaidDate = &t
	}
	inst.PayMode = plan.PaymentMode(payMode.String)
	return &inst, nil
}

func (r *postgresPlanRepo) BatchCreateInstallments(ctx context.Context, installments []*plan.Installment) error {
	query := `
		INSERT INTO installments (
			plan_id, seq, due_date, amount_cents, paid, pay_mode,
			penalty_cents, interest_cents, total_paid_cents, postponed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	for _, inst := range installments {
		err := r.executor().QueryRowContext(ctx, query,
			inst.PlanID, inst.Seq, nullTime(inst.DueDate), inst.AmountCents,
			inst.Paid, nullString(string(inst.PayMode)),
			inst.PenaltyCents, inst.InterestCents, inst.TotalPaidWithPenaltyC, inst.Postponed,
		).Scan(&inst.ID)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert installment")
		}
	}
	return nil
}

func (r *postgresPlanRepo) GetInstallment(ctx context.Context, id int64) (*plan.Installment, error) {
	row := r.executor().QueryRowContext(ctx, `SELECT `+installmentColumns+` FROM installments WHERE id = $1`, id)
	inst, err := scanInstallment(row)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeInstallmentNotFound, "installment %d not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query installment")
	}
	return inst, nil
}

func (r *postgresPlanRepo) GetInstallmentBySeq(ctx context.Context, planID int64, seq int) (*plan.Installment, error) {
	row := r.executor().QueryRowContext(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE plan_id = $1 AND seq = $2`, planID, seq)
	inst, err := scanInstallment(row)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeInstallmentNotFound, "installment %d/%d not found", planID, seq)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query installment")
	}
	return inst, nil
}

func (r *postgresPlanRepo) ListInstallmentsByPlan(ctx context.Context, planID int64) ([]plan.Installment, error) {
	rows, err := r.executor().QueryContext(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE plan_id = $1 ORDER BY seq`, planID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list installments")
	}
	defer rows.Close()

	var out []plan.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan installment row")
		}
		out = append(out, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "installment row iteration failed")
	}
	return out, nil
}

func (r *postgresPlanRepo) UpdateInstallmentPayment(ctx context.Context, id int64, paid bool, paidDate *time.Time, mode plan.PaymentMode, penaltyCents, interestCents, totalPaidCents int64) error {
	query := `
		UPDATE installments SET
			paid = $2, paid_date = $3, pay_mode = $4,
			penalty_cents = $5, interest_cents = $6, total_paid_cents = $7
		WHERE id = $1
	`
	return r.execExpectingRow(ctx, query, "installment", id,
		paid, nullTime(paidDate), nullString(string(mode)), penaltyCents, interestCents, totalPaidCents)
}

func (r *postgresPlanRepo) UpdateInstallmentDueDate(ctx context.Context, id int64, dueDate time.Time, postponed bool) error {
	query := `UPDATE installments SET due_date = $2, postponed = $3 WHERE id = $1`
	return r.execExpectingRow(ctx, query, "installment", id, dueDate, postponed)
}

// --- Debts ---

func scanDebt(s scanner) (*plan.Debt, error) {
	var (
		d    plan.Debt
		desc sql.NullString
	)
	if err := s.Scan(&d.ID, &d.Number, &desc, &d.OriginalCents, &d.ResidualCents, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Description = desc.String
	return &d, nil
}

func (r *postgresPlanRepo) GetDebt(ctx context.Context, id int64) (*plan.Debt, error) {
	row := r.executor().QueryRowContext(ctx,
		`SELECT id, number, description, original_cents, residual_cents, created_at FROM debts WHERE id = $1`, id)
	d, err := scanDebt(row)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeDebtNotFound, "debt %d not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query debt")
	}
	return d, nil
}

func (r *postgresPlanRepo) GetDebtsByIDs(ctx context.Context, ids []int64) ([]plan.Debt, error) {
	rows, err := r.executor().QueryContext(ctx,
		`SELECT id, number, description, original_cents, residual_cents, created_at FROM debts WHERE id = ANY($1) ORDER BY id`,
		pq.Array(ids))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list debts")
	}
	defer rows.Close()

	var out []plan.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan debt row")
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "debt row iteration failed")
	}
	return out, nil
}

const debtLinkColumns = `plan_id, debt_id, status, migrated_in, migrated_at, created_at`

func scanDebtLink(s scanner) (*plan.PlanDebtLink, error) {
	var (
		l          plan.PlanDebtLink
		migratedAt sql.NullTime
	)
	if err := s.Scan(&l.PlanID, &l.DebtID, &l.Status, &l.MigratedIn, &migratedAt, &l.CreatedAt); err != nil {
		return nil, err
	}
	if migratedAt.Valid {
		t := migratedAt.Time
		l.MigratedAt = &t
	}
	return &l, nil
}

func (r *postgresPlanRepo) ListDebtLinksByPlan(ctx context.Context, planID int64) ([]plan.PlanDebtLink, error) {
	rows, err := r.executor().QueryContext(ctx,
		`SELECT `+debtLinkColumns+` FROM plan_debt_links WHERE plan_id = $1 ORDER BY debt_id`, planID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list debt links")
	}
	defer rows.Close()

	var out []plan.PlanDebtLink
	for rows.Next() {
		l, err := scanDebtLink(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan debt link row")
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "debt link row iteration failed")
	}
	return out, nil
}

func (r *postgresPlanRepo) GetActiveLinkByDebt(ctx context.Context, debtID int64) (*plan.PlanDebtLink, error) {
	row := r.executor().QueryRowContext(ctx,
		`SELECT `+debtLinkColumns+` FROM plan_debt_links WHERE debt_id = $1 AND status = $2`, debtID, plan.LinkActive)
	l, err := scanDebtLink(row)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeLinkNotFound, "debt %d has no active link", debtID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query debt link")
	}
	return l, nil
}

func (r *postgresPlanRepo) CreateDebtLink(ctx context.Context, link *plan.PlanDebtLink) error {
	query := `
		INSERT INTO plan_debt_links (plan_id, debt_id, status, migrated_in, migrated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.executor().QueryRowContext(ctx, query,
		link.PlanID, link.DebtID, link.Status, link.MigratedIn, nullTime(link.MigratedAt),
	).Scan(&link.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert debt link")
	}
	return nil
}

func (r *postgresPlanRepo) UpdateDebtLinkStatus(ctx context.Context, planID, debtID int64, status plan.LinkStatus, migratedAt *time.Time) error {
	query := `UPDATE plan_debt_links SET status = $3, migrated_at = $4 WHERE plan_id = $1 AND debt_id = $2`
	res, err := r.executor().ExecContext(ctx, query, planID, debtID, status, nullTime(migratedAt))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update debt link")
	}
	return checkAffected(res, errors.ErrCodeLinkNotFound, "debt link")
}

func (r *postgresPlanRepo) DeleteDebtLink(ctx context.Context, planID, debtID int64) error {
	res, err := r.executor().ExecContext(ctx,
		`DELETE FROM plan_debt_links WHERE plan_id = $1 AND debt_id = $2`, planID, debtID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete debt link")
	}
	return checkAffected(res, errors.ErrCodeLinkNotFound, "debt link")
}

// --- Readmission links ---

func (r *postgresPlanRepo) CreateReadmissionLink(ctx context.Context, link *plan.ReadmissionLink) error {
	query := `
		INSERT INTO readmission_links (portal_plan_id, readmission_plan_id, note)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.executor().QueryRowContext(ctx, query,
		link.PortalPlanID, link.ReadmissionPlanID, nullString(link.Note),
	).Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert readmission link")
	}
	return nil
}

func (r *postgresPlanRepo) ListReadmissionLinksByPortal(ctx context.Context, portalPlanID int64) ([]plan.ReadmissionLink, error) {
	rows, err := r.executor().QueryContext(ctx,
		`SELECT id, portal_plan_id, readmission_plan_id, note, created_at
		 FROM readmission_links WHERE portal_plan_id = $1 ORDER BY id`, portalPlanID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list readmission links")
	}
	defer rows.Close()

	var out []plan.ReadmissionLink
	for rows.Next() {
		var (
			l    plan.ReadmissionLink
			note sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.PortalPlanID, &l.ReadmissionPlanID, &note, &l.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan readmission link row")
		}
		l.Note = note.String
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "readmission link row iteration failed")
	}
	return out, nil
}

func (r *postgresPlanRepo) DeleteReadmissionLinks(ctx context.Context, portalPlanID int64, targetIDs []int64) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if len(targetIDs) == 0 {
		res, err = r.executor().ExecContext(ctx,
			`DELETE FROM readmission_links WHERE portal_plan_id = $1`, portalPlanID)
	} else {
		res, err = r.executor().ExecContext(ctx,
			`DELETE FROM readmission_links WHERE portal_plan_id = $1 AND readmission_plan_id = ANY($2)`,
			portalPlanID, pq.Array(targetIDs))
	}
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete readmission links")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read affected rows")
	}
	return n, nil
}

func (r *postgresPlanRepo) CountReadmissionLinks(ctx context.Context, portalPlanID int64) (int64, error) {
	var n int64
	err := r.executor().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM readmission_links WHERE portal_plan_id = $1`, portalPlanID).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count readmission links")
	}
	return n, nil
}

// --- Surcharge links ---

func (r *postgresPlanRepo) CreateSurchargeLink(ctx context.Context, link *plan.SurchargeLink) error {
	query := `
		INSERT INTO surcharge_links (
			withholding_plan_id, portal_plan_id,
			residual_cents, portal_total_cents, surcharge_cents, reason
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.executor().QueryRowContext(ctx, query,
		link.WithholdingPlanID, link.PortalPlanID,
		link.ResidualCents, link.PortalTotalCents, link.SurchargeCents, nullString(link.Reason),
	).Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert surcharge link")
	}
	return nil
}

func (r *postgresPlanRepo) GetSurchargeLinkByWithholding(ctx context.Context, withholdingPlanID int64) (*plan.SurchargeLink, error) {
	var (
		l      plan.SurchargeLink
		reason sql.NullString
	)
	err := r.executor().QueryRowContext(ctx,
		`SELECT id, withholding_plan_id, portal_plan_id, residual_cents, portal_total_cents, surcharge_cents, reason, created_at
		 FROM surcharge_links WHERE withholding_plan_id = $1`, withholdingPlanID,
	).Scan(&l.ID, &l.WithholdingPlanID, &l.PortalPlanID, &l.ResidualCents, &l.PortalTotalCents, &l.SurchargeCents, &reason, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeLinkNotFound, "plan %d has no surcharge link", withholdingPlanID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query surcharge link")
	}
	l.Reason = reason.String
	return &l, nil
}

func (r *postgresPlanRepo) DeleteSurchargeLink(ctx context.Context, withholdingPlanID int64) error {
	res, err := r.executor().ExecContext(ctx,
		`DELETE FROM surcharge_links WHERE withholding_plan_id = $1`, withholdingPlanID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete surcharge link")
	}
	return checkAffected(res, errors.ErrCodeLinkNotFound, "surcharge link")
}

// --- helpers ---

func (r *postgresPlanRepo) execExpectingRow(ctx context.Context, query, entity string, id int64, args ...interface{}) error {
	all := append([]interface{}{id}, args...)
	res, err := r.executor().ExecContext(ctx, query, all...)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update "+entity)
	}
	return checkAffected(res, errors.ErrCodeNotFound, entity)
}

func checkAffected(res sql.Result, code errors.ErrorCode, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read affected rows")
	}
	if n == 0 {
		return errors.New(code, entity+" not found")
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func limitOffsetClause(argCount int) string {
	// args were appended as limit then offset
	return ` LIMIT $` + strconv.Itoa(argCount-1) + ` OFFSET $` + strconv.Itoa(argCount)
}
