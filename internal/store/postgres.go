package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the user records table. Applied at startup with
// EnsureSchema; the table is small enough that versioned migrations
// are not warranted yet.
const Schema = `
CREATE TABLE IF NOT EXISTS user_records (
    id                    TEXT PRIMARY KEY,
    access_credential     TEXT NOT NULL DEFAULT '',
    refresh_credential    TEXT NOT NULL DEFAULT '',
    credential_expires_at TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
    wallet_object_ref     TEXT NOT NULL DEFAULT '',
    display_name          TEXT NOT NULL DEFAULT '',
    last_known_barcode    TEXT NOT NULL DEFAULT '',
    barcode_expires_at    TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
    last_synced_at        TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
    created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// postgresStore implements Store backed by PostgreSQL
type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed store using the given pool
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

// NewPostgresPool creates a connection pool from a connection string and
// verifies connectivity before returning.
func NewPostgresPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema applies the user records schema
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply user records schema: %w", err)
	}
	return nil
}

const selectColumns = `id, access_credential, refresh_credential, credential_expires_at,
	wallet_object_ref, display_name, last_known_barcode, barcode_expires_at,
	last_synced_at, created_at`

func scanRecord(row pgx.Row) (*UserRecord, error) {
	var record UserRecord
	err := row.Scan(
		&record.ID,
		&record.AccessCredential,
		&record.RefreshCredential,
		&record.CredentialExpiresAt,
		&record.WalletObjectRef,
		&record.DisplayName,
		&record.LastKnownBarcode,
		&record.BarcodeExpiresAt,
		&record.LastSyncedAt,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &record, nil
}

func (p *postgresStore) Get(ctx context.Context, id string) (*UserRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM user_records WHERE id = $1`
	return scanRecord(p.pool.QueryRow(ctx, query, NormalizeID(id)))
}

func (p *postgresStore) List(ctx context.Context) ([]*UserRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM user_records ORDER BY id`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var records []*UserRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return records, nil
}

func (p *postgresStore) Upsert(ctx context.Context, record *UserRecord) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("record ID is required")
	}

	query := `
		INSERT INTO user_records (` + selectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			access_credential     = EXCLUDED.access_credential,
			refresh_credential    = EXCLUDED.refresh_credential,
			credential_expires_at = EXCLUDED.credential_expires_at,
			wallet_object_ref     = EXCLUDED.wallet_object_ref,
			display_name          = EXCLUDED.display_name,
			last_known_barcode    = EXCLUDED.last_known_barcode,
			barcode_expires_at    = EXCLUDED.barcode_expires_at,
			last_synced_at        = EXCLUDED.last_synced_at`

	_, err := p.pool.Exec(ctx, query,
		NormalizeID(record.ID),
		record.AccessCredential,
		record.RefreshCredential,
		record.CredentialExpiresAt,
		record.WalletObjectRef,
		record.DisplayName,
		record.LastKnownBarcode,
		record.BarcodeExpiresAt,
		record.LastSyncedAt,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (p *postgresStore) PartialUpdate(ctx context.Context, id string, update func(*UserRecord)) error {
	normalized := NormalizeID(id)

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		query := `SELECT ` + selectColumns + ` FROM user_records WHERE id = $1 FOR UPDATE`
		record, err := scanRecord(tx.QueryRow(ctx, query, normalized))
		if err != nil {
			return err
		}

		update(record)

		_, err = tx.Exec(ctx, `
			UPDATE user_records SET
				access_credential     = $2,
				refresh_credential    = $3,
				credential_expires_at = $4,
				wallet_object_ref     = $5,
				display_name          = $6,
				last_known_barcode    = $7,
				barcode_expires_at    = $8,
				last_synced_at        = $9
			WHERE id = $1`,
			normalized,
			record.AccessCredential,
			record.RefreshCredential,
			record.CredentialExpiresAt,
			record.WalletObjectRef,
			record.DisplayName,
			record.LastKnownBarcode,
			record.BarcodeExpiresAt,
			record.LastSyncedAt,
		)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

func (p *postgresStore) Delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM user_records WHERE id = $1`, NormalizeID(id))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
