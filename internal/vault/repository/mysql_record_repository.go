package repository

import (
	"context"
	"database/sql"

	"github.com/flavortown/credvault/internal/database"
	apperrors "github.com/flavortown/credvault/internal/errors"
	vaultDomain "github.com/flavortown/credvault/internal/vault/domain"
)

// MySQLRecordRepository implements SecretRecord persistence for MySQL databases.
type MySQLRecordRepository struct {
	db *sql.DB
}

// NewMySQLRecordRepository creates a new MySQL SecretRecord repository instance.
func NewMySQLRecordRepository(db *sql.DB) *MySQLRecordRepository {
	return &MySQLRecordRepository{db: db}
}

// Get retrieves the record for a (user, service) pair.
func (m *MySQLRecordRepository) Get(
	ctx context.Context,
	userID string,
	service vaultDomain.Service,
) (*vaultDomain.SecretRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, user_id, service, salt, nonce, ciphertext, updated_at
			  FROM user_credentials
			  WHERE user_id = ? AND service = ?`

	var record vaultDomain.SecretRecord
	err := querier.QueryRowContext(ctx, query, userID, string(service)).Scan(
		&record.ID,
		&record.UserID,
		&record.Service,
		&record.Salt,
		&record.Nonce,
		&record.Ciphertext,
		&record.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.WrapWith(apperrors.ErrStorage, err, "failed to get credential record")
	}

	return &record, nil
}

// Upsert inserts or atomically replaces the record for its (user, service) pair.
func (m *MySQLRecordRepository) Upsert(
	ctx context.Context,
	record *vaultDomain.SecretRecord,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO user_credentials (id, user_id, service, salt, nonce, ciphertext, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
				  salt = VALUES(salt),
				  nonce = VALUES(nonce),
				  ciphertext = VALUES(ciphertext),
				  updated_at = VALUES(updated_at)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
		record.UserID,
		string(record.Service),
		record.Salt,
		record.Nonce,
		record.Ciphertext,
		record.UpdatedAt,
	)
	if err != nil {
		return apperrors.WrapWith(apperrors.ErrStorage, err, "failed to upsert credential record")
	}
	return nil
}

// Delete removes the record for a (user, service) pair, reporting whether one existed.
func (m *MySQLRecordRepository) Delete(
	ctx context.Context,
	userID string,
	service vaultDomain.Service,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM user_credentials WHERE user_id = ? AND service = ?`

	result, err := querier.ExecContext(ctx, query, userID, string(service))
	if err != nil {
		return false, apperrors.WrapWith(apperrors.ErrStorage, err, "failed to delete credential record")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.WrapWith(apperrors.ErrStorage, err, "failed to read affected rows")
	}

	return affected > 0, nil
}

// ListServices returns the services a user has stored credentials for.
func (m *MySQLRecordRepository) ListServices(
	ctx context.Context,
	userID string,
) ([]vaultDomain.Service, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT service FROM user_credentials WHERE user_id = ? ORDER BY service`

	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.WrapWith(apperrors.ErrStorage, err, "failed to list services")
	}
	defer rows.Close()

	var services []vaultDomain.Service
	for rows.Next() {
		var service vaultDomain.Service
		if err := rows.Scan(&service); err != nil {
			return nil, apperrors.WrapWith(apperrors.ErrStorage, err, "failed to scan service")
		}
		services = append(services, service)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapWith(apperrors.ErrStorage, err, "failed to iterate services")
	}

	return services, nil
}
