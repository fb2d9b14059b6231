package repositories

import (
	"context"
	"database/sql"

	"intihelp/internal/models"
)

type catalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListTaskTypes(ctx context.Context) ([]models.TaskType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description FROM task_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TaskType
	for rows.Next() {
		var t models.TaskType
		if err := rows.Scan(&t.ID, &t.Name, &t.Description); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *catalogRepository) GetTaskType(ctx context.Context, id int64) (*models.TaskType, error) {
	var t models.TaskType
	err := r.db.QueryRowContext(ctx, `SELECT id, name, description FROM task_types WHERE id=$1`, id).
		Scan(&t.ID, &t.Name, &t.Description)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *catalogRepository) ListCareers(ctx context.Context) ([]models.Career, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM careers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Career
	for rows.Next() {
		var c models.Career
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *catalogRepository) ListUniversities(ctx context.Context) ([]models.University, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM universities ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.University
	for rows.Next() {
		var u models.University
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
