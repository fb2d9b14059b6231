package repositories

import (
	"context"
	"database/sql"

	"intihelp/internal/models"
)

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, task_id, payer_user_id, group_member_id, amount, payment_method, status,
	sender_name, sender_bank, recipient_bank, transfer_date, transfer_receipt_file_id,
	verified_by, verified_at, rejection_reason, created_at`

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		p          models.Payment
		memberID   sql.NullInt64
		verifiedBy sql.NullInt64
		verifiedAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.TaskID, &p.PayerUserID, &memberID, &p.Amount, &p.Method, &p.Status,
		&p.SenderName, &p.SenderBank, &p.RecipientBank, &p.TransferDate, &p.ReceiptFileID,
		&verifiedBy, &verifiedAt, &p.RejectionReason, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if memberID.Valid {
		p.GroupMemberID = &memberID.Int64
	}
	if verifiedBy.Valid {
		p.VerifiedBy = &verifiedBy.Int64
	}
	if verifiedAt.Valid {
		p.VerifiedAt = &verifiedAt.Time
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var status models.TaskStatus
		if err := tx.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id=$1 FOR UPDATE`, p.TaskID).Scan(&status); err != nil {
			return notFound(err)
		}
		if status != models.StatusAccepted {
			return ErrStaleStatus
		}

		if p.GroupMemberID == nil {
			var exists bool
			if err := tx.QueryRowContext(ctx, `
				SELECT EXISTS (
					SELECT 1 FROM payments
					WHERE task_id=$1 AND group_member_id IS NULL AND status IN ('pending','verified')
				)`, p.TaskID).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return ErrPaymentExists
			}
		} else {
			var ms models.MemberPaymentStatus
			if err := tx.QueryRowContext(ctx,
				`SELECT payment_status FROM group_members WHERE id=$1 FOR UPDATE`, *p.GroupMemberID,
			).Scan(&ms); err != nil {
				return notFound(err)
			}
			if !ms.CanSubmit() {
				return ErrMemberNotPayable
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE group_members
				SET payment_status=$1, user_id=COALESCE(user_id, $2), updated_at=NOW()
				WHERE id=$3`, models.MemberSent, p.PayerUserID, *p.GroupMemberID); err != nil {
				return err
			}
		}

		if p.Method == "" {
			p.Method = models.PaymentMethodBankTransfer
		}
		p.Status = models.PaymentPending
		return tx.QueryRowContext(ctx, `
			INSERT INTO payments (task_id, payer_user_id, group_member_id, amount, payment_method, status,
				sender_name, sender_bank, recipient_bank, transfer_date, transfer_receipt_file_id)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			RETURNING id, created_at`,
			p.TaskID, p.PayerUserID, p.GroupMemberID, p.Amount, p.Method, p.Status,
			p.SenderName, p.SenderBank, p.RecipientBank, p.TransferDate, p.ReceiptFileID,
		).Scan(&p.ID, &p.CreatedAt)
	})
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id))
}

func (r *paymentRepository) ListByPayer(ctx context.Context, payerID int64) ([]models.Payment, error) {
	return r.list(ctx, `WHERE payer_user_id=$1`, payerID)
}

func (r *paymentRepository) ListByTask(ctx context.Context, taskID int64) ([]models.Payment, error) {
	return r.list(ctx, `WHERE task_id=$1`, taskID)
}

func (r *paymentRepository) list(ctx context.Context, where string, arg int64) ([]models.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments `+where+` ORDER BY created_at DESC, id DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *paymentRepository) Verify(ctx context.Context, in VerifyPaymentInput) (*VerifyPaymentResult, error) {
	res := &VerifyPaymentResult{}
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		p, err := scanPayment(tx.QueryRowContext(ctx,
			`SELECT `+paymentColumns+` FROM payments WHERE id=$1 FOR UPDATE`, in.PaymentID))
		if err != nil {
			return err
		}
		if p.Status != models.PaymentPending {
			return ErrPaymentNotPending
		}

		var taskStatus models.TaskStatus
		if err := tx.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id=$1 FOR UPDATE`, p.TaskID).Scan(&taskStatus); err != nil {
			return notFound(err)
		}
		if taskStatus != models.StatusAccepted {
			return ErrStaleStatus
		}

		p, err = scanPayment(tx.QueryRowContext(ctx, `
			UPDATE payments SET status=$1, verified_by=$2, verified_at=NOW()
			WHERE id=$3
			RETURNING `+paymentColumns, models.PaymentVerified, in.VerifierID, p.ID))
		if err != nil {
			return err
		}
		res.Payment = p

		settled := true
		if p.GroupMemberID != nil {
			var groupID int64
			if err := tx.QueryRowContext(ctx, `
				UPDATE group_members SET payment_status=$1, updated_at=NOW()
				WHERE id=$2
				RETURNING group_id`, models.MemberVerified, *p.GroupMemberID).Scan(&groupID); err != nil {
				return notFound(err)
			}
			var remaining int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM group_members WHERE group_id=$1 AND payment_status <> $2`,
				groupID, models.MemberVerified).Scan(&remaining); err != nil {
				return err
			}
			settled = remaining == 0
		}

		if settled {
			res.Task, err = transitionTx(ctx, tx, TransitionInput{
				TaskID:  p.TaskID,
				From:    models.StatusAccepted,
				To:      models.StatusPaid,
				Title:   in.PaidTitle,
				ActorID: in.VerifierID,
			})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *paymentRepository) Reject(ctx context.Context, paymentID, verifierID int64, reason string) (*models.Payment, error) {
	var out *models.Payment
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		p, err := scanPayment(tx.QueryRowContext(ctx,
			`SELECT `+paymentColumns+` FROM payments WHERE id=$1 FOR UPDATE`, paymentID))
		if err != nil {
			return err
		}
		if p.Status != models.PaymentPending {
			return ErrPaymentNotPending
		}
		out, err = scanPayment(tx.QueryRowContext(ctx, `
			UPDATE payments SET status=$1, verified_by=$2, verified_at=NOW(), rejection_reason=$3
			WHERE id=$4
			RETURNING `+paymentColumns, models.PaymentRejected, verifierID, reason, paymentID))
		if err != nil {
			return err
		}
		if p.GroupMemberID != nil {
			_, err = tx.ExecContext(ctx,
				`UPDATE group_members SET payment_status=$1, updated_at=NOW() WHERE id=$2`,
				models.MemberInvalid, *p.GroupMemberID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
