package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"intihelp/internal/models"
)

type pricingRepository struct {
	db *sql.DB
}

func NewPricingRepository(db *sql.DB) PricingRepository {
	return &pricingRepository{db: db}
}

func (r *pricingRepository) GetAssistantTaskType(ctx context.Context, assistantID, taskTypeID int64) (*models.AssistantTaskType, error) {
	var att models.AssistantTaskType
	err := r.db.QueryRowContext(ctx, `
		SELECT id, assistant_id, task_type_id, is_enabled
		FROM assistant_task_types
		WHERE assistant_id=$1 AND task_type_id=$2
	`, assistantID, taskTypeID).Scan(&att.ID, &att.AssistantID, &att.TaskTypeID, &att.IsEnabled)
	if err != nil {
		return nil, notFound(err)
	}
	return &att, nil
}

func (r *pricingRepository) ListBands(ctx context.Context, assistantTaskTypeID int64) ([]models.PriceBand, error) {
	m, err := r.bandsFor(ctx, []int64{assistantTaskTypeID})
	if err != nil {
		return nil, err
	}
	return m[assistantTaskTypeID], nil
}

func (r *pricingRepository) bandsFor(ctx context.Context, ids []int64) (map[int64][]models.PriceBand, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, assistant_task_type_id, criterion_type, min_value, max_value, cost
		FROM assistant_pricing
		WHERE assistant_task_type_id = ANY($1)
		ORDER BY criterion_type, min_value, id
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64][]models.PriceBand{}
	for rows.Next() {
		var b models.PriceBand
		if err := rows.Scan(&b.ID, &b.AssistantTaskTypeID, &b.Criterion, &b.MinValue, &b.MaxValue, &b.Cost); err != nil {
			return nil, err
		}
		out[b.AssistantTaskTypeID] = append(out[b.AssistantTaskTypeID], b)
	}
	return out, rows.Err()
}

func (r *pricingRepository) SaveService(ctx context.Context, assistantID, taskTypeID int64, enabled bool, bands []models.PriceBand) (*models.AssistantTaskType, error) {
	var att models.AssistantTaskType
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO assistant_task_types (assistant_id, task_type_id, is_enabled)
			VALUES ($1,$2,$3)
			ON CONFLICT (assistant_id, task_type_id) DO UPDATE SET is_enabled = EXCLUDED.is_enabled
			RETURNING id, assistant_id, task_type_id, is_enabled
		`, assistantID, taskTypeID, enabled).Scan(&att.ID, &att.AssistantID, &att.TaskTypeID, &att.IsEnabled)
		if err != nil {
			return err
		}
		if bands == nil {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM assistant_pricing WHERE assistant_task_type_id=$1`, att.ID); err != nil {
			return err
		}
		for i := range bands {
			b := &bands[i]
			b.AssistantTaskTypeID = att.ID
			err := tx.QueryRowContext(ctx, `
				INSERT INTO assistant_pricing (assistant_task_type_id, criterion_type, min_value, max_value, cost)
				VALUES ($1,$2,$3,$4,$5)
				RETURNING id
			`, att.ID, b.Criterion, b.MinValue, b.MaxValue, b.Cost).Scan(&b.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &att, nil
}

const offerQuery = `
	SELECT att.id, att.assistant_id, att.task_type_id, att.is_enabled,
	       u.full_name, u.know_how_areas, COALESCE(AVG(r.rating), 0)
	FROM assistant_task_types att
	JOIN users u ON u.id = att.assistant_id
	LEFT JOIN ratings r ON r.rated_user = u.id
	WHERE att.is_enabled AND att.task_type_id = $1`

const offerGroupBy = ` GROUP BY att.id, u.id ORDER BY att.id`

func (r *pricingRepository) ListOffers(ctx context.Context, taskTypeID int64) ([]models.AssistantOffer, error) {
	return r.offers(ctx, offerQuery+offerGroupBy, taskTypeID)
}

func (r *pricingRepository) GetOffer(ctx context.Context, assistantID, taskTypeID int64) (*models.AssistantOffer, error) {
	offers, err := r.offers(ctx, offerQuery+` AND att.assistant_id = $2`+offerGroupBy, taskTypeID, assistantID)
	if err != nil {
		return nil, err
	}
	if len(offers) == 0 {
		return nil, ErrNotFound
	}
	return &offers[0], nil
}

func (r *pricingRepository) offers(ctx context.Context, q string, args ...any) ([]models.AssistantOffer, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out []models.AssistantOffer
		ids []int64
	)
	for rows.Next() {
		var o models.AssistantOffer
		if err := rows.Scan(&o.ID, &o.AssistantID, &o.TaskTypeID, &o.IsEnabled,
			&o.AssistantName, &o.KnowHowAreas, &o.AvgRating); err != nil {
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	bands, err := r.bandsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Bands = bands[out[i].ID]
	}
	return out, nil
}
