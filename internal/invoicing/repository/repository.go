// Package repository implements the sale store on PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pos_invoicing_backend/internal/invoicing/domain"
	"pos_invoicing_backend/internal/invoicing/ports"
	"pos_invoicing_backend/platform/apperr"
)

const (
	saleNotFoundMessage = "sale not found"
	defaultPendingLimit = 100

	recordColumns = `id, comprobante_id, estado_sri, clave_acceso, created_at, updated_at`
)

// Repo reads and writes the voucher tracking columns of the sales table.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new sale repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements ports.SaleStore.
var _ ports.SaleStore = (*Repo)(nil)

// FindByID loads a sale. It returns nil, nil when the sale does not exist.
func (r *Repo) FindByID(ctx context.Context, saleID string) (*domain.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM sales WHERE id = $1`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, saleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find sale: %w", err)
	}
	return &rec, nil
}

// Update writes the set fields in a single statement and returns the row.
func (r *Repo) Update(ctx context.Context, saleID string, fields domain.Fields) (domain.Record, error) {
	if fields.Empty() {
		rec, err := r.FindByID(ctx, saleID)
		if err != nil {
			return domain.Record{}, err
		}
		if rec == nil {
			return domain.Record{}, apperr.NotFound(saleNotFoundMessage)
		}
		return *rec, nil
	}

	query := `
		UPDATE sales
		SET comprobante_id = COALESCE($2, comprobante_id),
			estado_sri = COALESCE($3, estado_sri),
			clave_acceso = COALESCE($4, clave_acceso),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + recordColumns

	var state *string
	if fields.State != nil {
		s := string(*fields.State)
		state = &s
	}

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, saleID, fields.RemoteVoucherID, state, fields.AccessKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Record{}, apperr.NotFound(saleNotFoundMessage)
		}
		return domain.Record{}, fmt.Errorf("update sale voucher: %w", err)
	}
	return rec, nil
}

// ListPending returns invoiced sales created after createdAfter that are not
// yet authorized with an access key, oldest first. Sales without a remote
// voucher id are skipped so they cannot fill the batch.
func (r *Repo) ListPending(ctx context.Context, createdAfter time.Time, limit int) ([]domain.Record, error) {
	if limit < 1 {
		limit = defaultPendingLimit
	}

	query := `
		SELECT ` + recordColumns + `
		FROM sales
		WHERE (estado_sri <> 'AUTHORIZED' OR COALESCE(TRIM(clave_acceso), '') = '')
		  AND COALESCE(TRIM(comprobante_id), '') <> ''
		  AND created_at > $1
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, createdAfter, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sales: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending sale: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending sales: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (domain.Record, error) {
	var (
		id        string
		remoteID  *string
		state     string
		accessKey *string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &remoteID, &state, &accessKey, &createdAt, &updatedAt); err != nil {
		return domain.Record{}, err
	}
	return toRecord(id, remoteID, state, accessKey, createdAt, updatedAt)
}

// toRecord validates stored values at the boundary. Blank strings in the
// nullable columns are read as NULL.
func toRecord(id string, remoteID *string, state string, accessKey *string, createdAt, updatedAt time.Time) (domain.Record, error) {
	parsed, err := domain.ParseState(state)
	if err != nil {
		return domain.Record{}, fmt.Errorf("sale %s: %w", id, err)
	}
	return domain.Record{
		ID:              id,
		RemoteVoucherID: nonBlank(remoteID),
		State:           parsed,
		AccessKey:       nonBlank(accessKey),
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}, nil
}

func nonBlank(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}
