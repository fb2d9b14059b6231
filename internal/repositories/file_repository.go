package repositories

import (
	"context"
	"database/sql"

	"intihelp/internal/models"
)

type fileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) FileRepository {
	return &fileRepository{db: db}
}

const fileColumns = `id, original_name, stored_name, file_path, file_size, mime_type,
	file_extension, uploaded_by, upload_context, created_at`

func scanFile(row rowScanner) (*models.File, error) {
	var f models.File
	err := row.Scan(&f.ID, &f.OriginalName, &f.StoredName, &f.FilePath, &f.FileSize, &f.MimeType,
		&f.FileExtension, &f.UploadedBy, &f.UploadContext, &f.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (r *fileRepository) Create(ctx context.Context, f *models.File) error {
	const q = `
		INSERT INTO files (original_name, stored_name, file_path, file_size, mime_type,
			file_extension, uploaded_by, upload_context)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, q,
		f.OriginalName, f.StoredName, f.FilePath, f.FileSize, f.MimeType,
		f.FileExtension, f.UploadedBy, f.UploadContext,
	).Scan(&f.ID, &f.CreatedAt)
}

func (r *fileRepository) GetByID(ctx context.Context, id int64) (*models.File, error) {
	return scanFile(r.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id=$1`, id))
}

func (r *fileRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id=$1`, id)
	return err
}

// LinkedTaskIDs lists the tasks a file is attached to, either as a task file
// or as a payment receipt.
func (r *fileRepository) LinkedTaskIDs(ctx context.Context, fileID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT task_id FROM task_files WHERE file_id = $1
		UNION
		SELECT task_id FROM payments WHERE transfer_receipt_file_id = $1`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
