package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"intihelp/internal/models"
)

type taskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `id, student_id, assistant_id, task_type_id, career_id, title, description,
	page_count, format, max_ai_percentage, max_plagiarism_percentage, due_date,
	assistant_price, platform_fee, discount, total_price, coupon_code, status, payment_type,
	group_id, idempotency_key, version, last_reminded_at, created_at, updated_at`

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var (
		assistantID sql.NullInt64
		careerID    sql.NullInt64
		coupon      sql.NullString
		groupID     sql.NullInt64
		idemKey     sql.NullString
		reminded    sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.StudentID, &assistantID, &t.TaskTypeID, &careerID, &t.Title, &t.Description,
		&t.PageCount, &t.Format, &t.MaxAIPercentage, &t.MaxPlagiarismPercentage, &t.DueDate,
		&t.AssistantPrice, &t.PlatformFee, &t.Discount, &t.TotalPrice, &coupon, &t.Status, &t.PaymentType,
		&groupID, &idemKey, &t.Version, &reminded, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	if assistantID.Valid {
		t.AssistantID = &assistantID.Int64
	}
	if careerID.Valid {
		t.CareerID = &careerID.Int64
	}
	if coupon.Valid {
		t.CouponCode = &coupon.String
	}
	if groupID.Valid {
		t.GroupID = &groupID.Int64
	}
	if idemKey.Valid {
		t.IdempotencyKey = &idemKey.String
	}
	if reminded.Valid {
		t.LastRemindedAt = &reminded.Time
	}
	return t, nil
}

func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	defer rows.Close()
	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *taskRepository) Create(ctx context.Context, in CreateTaskInput) (*models.Task, bool, error) {
	task := in.Task
	var (
		stored  *models.Task
		created bool
	)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO tasks (
				student_id, assistant_id, task_type_id, career_id, title, description,
				page_count, format, max_ai_percentage, max_plagiarism_percentage, due_date,
				assistant_price, platform_fee, discount, total_price, coupon_code, status,
				payment_type, idempotency_key
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
			ON CONFLICT (student_id, idempotency_key) DO NOTHING
			RETURNING id`,
			task.StudentID, task.AssistantID, task.TaskTypeID, task.CareerID, task.Title, task.Description,
			task.PageCount, task.Format, task.MaxAIPercentage, task.MaxPlagiarismPercentage, task.DueDate,
			task.AssistantPrice, task.PlatformFee, task.Discount, task.TotalPrice, task.CouponCode,
			models.StatusRequested, task.PaymentType, task.IdempotencyKey,
		).Scan(&id)
		if err == sql.ErrNoRows && task.IdempotencyKey != nil {
			// replay of an earlier request
			stored, err = scanTask(tx.QueryRowContext(ctx,
				`SELECT `+taskColumns+` FROM tasks WHERE student_id=$1 AND idempotency_key=$2`,
				task.StudentID, *task.IdempotencyKey))
			return err
		}
		if err != nil {
			return err
		}

		if task.PaymentType == models.PaymentTypeGroup {
			if err := insertGroup(ctx, tx, id, in); err != nil {
				return err
			}
		}
		for _, fileID := range in.FileIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO task_files (task_id, file_id, upload_type) VALUES ($1,$2,$3)`,
				id, fileID, models.UploadRequirement); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO task_status_timeline (task_id, status, title, created_by, is_current)
			VALUES ($1,$2,$3,$4,TRUE)`,
			id, models.StatusRequested, in.TimelineTitle, task.StudentID); err != nil {
			return err
		}

		stored, err = scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, id))
		created = err == nil
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func insertGroup(ctx context.Context, tx *sql.Tx, taskID int64, in CreateTaskInput) error {
	var groupID int64
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO payment_groups (task_id, name) VALUES ($1,$2) RETURNING id`,
		taskID, in.GroupName).Scan(&groupID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE payment_groups SET group_link=$1 WHERE id=$2`, fmt.Sprintf("/groups/%d", groupID), groupID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET group_id=$1 WHERE id=$2`, groupID, taskID); err != nil {
		return err
	}
	for i, name := range in.Members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO group_members (group_id, member_name, share_amount, payment_status)
			VALUES ($1,$2,$3,$4)`,
			groupID, name, in.Shares[i], models.MemberPending); err != nil {
			return err
		}
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	return scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

func (r *taskRepository) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	baseQuery := `SELECT ` + taskColumns + ` FROM tasks`

	conditions := []string{}
	args := []interface{}{}
	argID := 1

	if filter.StudentID != nil {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", argID))
		args = append(args, *filter.StudentID)
		argID++
	}
	if filter.AssistantID != nil {
		conditions = append(conditions, fmt.Sprintf("assistant_id = $%d", argID))
		args = append(args, *filter.AssistantID)
		argID++
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", argID))
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		argID++
	}
	if len(filter.ExcludeStatuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("NOT (status = ANY($%d))", argID))
		args = append(args, pq.Array(statusStrings(filter.ExcludeStatuses)))
		argID++
	}

	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

func (r *taskRepository) Timeline(ctx context.Context, taskID int64) ([]models.StatusTimelineEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, status, title, created_by, is_current, completed_at
		FROM task_status_timeline
		WHERE task_id = $1
		ORDER BY id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StatusTimelineEntry
	for rows.Next() {
		var e models.StatusTimelineEntry
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Status, &e.Title, &e.CreatedBy, &e.IsCurrent, &e.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *taskRepository) Files(ctx context.Context, taskID int64) ([]models.TaskFile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tf.task_id, tf.upload_type, f.id, f.original_name, f.stored_name, f.file_path, f.file_size,
		       f.mime_type, f.file_extension, f.uploaded_by, f.upload_context, f.created_at
		FROM task_files tf
		JOIN files f ON f.id = tf.file_id
		WHERE tf.task_id = $1
		ORDER BY f.id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TaskFile
	for rows.Next() {
		var (
			tf models.TaskFile
			f  models.File
		)
		if err := rows.Scan(&tf.TaskID, &tf.UploadType, &f.ID, &f.OriginalName, &f.StoredName, &f.FilePath,
			&f.FileSize, &f.MimeType, &f.FileExtension, &f.UploadedBy, &f.UploadContext, &f.CreatedAt); err != nil {
			return nil, err
		}
		tf.FileID = f.ID
		tf.File = &f
		out = append(out, tf)
	}
	return out, rows.Err()
}

func (r *taskRepository) Transition(ctx context.Context, in TransitionInput) (*models.Task, error) {
	var task *models.Task
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		task, err = transitionTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// transitionTx performs a status change inside an open transaction. It locks
// the task row, so callers holding other row locks must take them in the
// order payment, task, group member.
func transitionTx(ctx context.Context, tx *sql.Tx, in TransitionInput) (*models.Task, error) {
	var current models.TaskStatus
	err := tx.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id=$1 FOR UPDATE`, in.TaskID).Scan(&current)
	if err != nil {
		return nil, notFound(err)
	}
	if current != in.From {
		return nil, ErrStaleStatus
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE task_status_timeline SET is_current=FALSE WHERE task_id=$1 AND is_current`, in.TaskID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO task_status_timeline (task_id, status, title, created_by, is_current)
		VALUES ($1,$2,$3,$4,TRUE)`,
		in.TaskID, in.To, in.Title, in.ActorID); err != nil {
		return nil, err
	}

	task, err := scanTask(tx.QueryRowContext(ctx, `
		UPDATE tasks
		SET status=$1, assistant_id=COALESCE($2, assistant_id), version=version+1, updated_at=NOW()
		WHERE id=$3 AND status=$4
		RETURNING `+taskColumns,
		in.To, in.AssignAssistantID, in.TaskID, in.From))
	if err == ErrNotFound {
		return nil, ErrStaleStatus
	}
	if err != nil {
		return nil, err
	}

	for _, f := range in.Files {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_files (task_id, file_id, upload_type) VALUES ($1,$2,$3)`,
			in.TaskID, f.FileID, f.UploadType); err != nil {
			return nil, err
		}
	}
	if in.Rating != nil {
		rt := in.Rating
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO ratings (task_id, rated_by, rated_user, rating, review)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING id, created_at`,
			in.TaskID, rt.RatedBy, rt.RatedUser, rt.Rating, rt.Review).Scan(&rt.ID, &rt.CreatedAt); err != nil {
			if isUniqueViolation(err) {
				return nil, ErrDuplicate
			}
			return nil, err
		}
	}
	return task, nil
}

func (r *taskRepository) ListDueForReminder(ctx context.Context, statuses []models.TaskStatus, dueBefore time.Time, limit int) ([]models.Task, error) {
	q := `
SELECT ` + taskColumns + `
FROM tasks
WHERE status = ANY($1)
  AND assistant_id IS NOT NULL
  AND due_date <= $2
  AND last_reminded_at IS NULL
ORDER BY due_date ASC
LIMIT $3`
	rows, err := r.db.QueryContext(ctx, q, pq.Array(statusStrings(statuses)), dueBefore, limit)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

func (r *taskRepository) SetReminderFired(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET last_reminded_at = NOW() WHERE id=$1`, id)
	return err
}

func (r *taskRepository) AssistantStats(ctx context.Context, assistantID int64) (*models.AssistantStats, error) {
	stats := &models.AssistantStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(assistant_price) FILTER (WHERE status = $2), 0),
			COALESCE(SUM(assistant_price) FILTER (WHERE NOT (status = ANY($3))), 0)
		FROM tasks
		WHERE assistant_id = $1`,
		assistantID, models.StatusAssistantPaid, pq.Array(statusStrings(ClosedStatuses)),
	).Scan(&stats.TotalTasks, &stats.TotalIncome, &stats.PendingIncome)
	if err != nil {
		return nil, err
	}

	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(rating), 0) FROM ratings WHERE rated_user = $1`, assistantID,
	).Scan(&stats.AvgRating); err != nil {
		return nil, err
	}

	stats.ActiveTasks, err = r.List(ctx, models.TaskFilter{
		AssistantID:     &assistantID,
		ExcludeStatuses: InactiveStatuses,
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func statusStrings(in []models.TaskStatus) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
