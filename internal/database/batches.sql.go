package database

import (
	"context"
	"time"
)

const createBatch = `
INSERT INTO batches (id, name, start_date, origin, status)
VALUES ($1, $2, $3, $4, 'OPEN')
RETURNING id, name, start_date, origin, status, created_at
`

type CreateBatchParams struct {
	ID        string
	Name      string
	StartDate time.Time
	Origin    string
}

func (q *Queries) CreateBatch(ctx context.Context, arg CreateBatchParams) (Batch, error) {
	row := q.db.QueryRow(ctx, createBatch, arg.ID, arg.Name, arg.StartDate, arg.Origin)
	var b Batch
	err := row.Scan(&b.ID, &b.Name, &b.StartDate, &b.Origin, &b.Status, &b.CreatedAt)
	return b, err
}

const getBatch = `
SELECT id, name, start_date, origin, status, created_at
FROM batches
WHERE id = $1
`

func (q *Queries) GetBatch(ctx context.Context, id string) (Batch, error) {
	row := q.db.QueryRow(ctx, getBatch, id)
	var b Batch
	err := row.Scan(&b.ID, &b.Name, &b.StartDate, &b.Origin, &b.Status, &b.CreatedAt)
	return b, err
}

const listBatches = `
SELECT id, name, start_date, origin, status, created_at
FROM batches
ORDER BY created_at DESC
`

func (q *Queries) ListBatches(ctx context.Context) ([]Batch, error) {
	rows, err := q.db.Query(ctx, listBatches)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.Name, &b.StartDate, &b.Origin, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}
