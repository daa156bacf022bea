package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/slugzin/leadflow-backend/internal/errors"
	"github.com/slugzin/leadflow-backend/internal/model"
)

// ConnectionRepositoryInterface defines the methods services consume.
type ConnectionRepositoryInterface interface {
	Create(c *model.Connection) error
	GetByID(id string) (*model.Connection, error)
	ListByOperator(operatorID string) ([]model.Connection, error)
	CountByOperator(operatorID string) (int, error)
	SetPairingCode(id, code string, issuedAt time.Time) error
	MarkConnected(id string, syncedAt time.Time) error
	MarkDisconnected(id string) error
	Delete(id string) error
}

type ConnectionRepository struct {
	DB *sql.DB
}

func (r *ConnectionRepository) Create(c *model.Connection) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = model.ConnectionDisconnected
	}
	c.CreatedAt = time.Now()

	query := `
        INSERT INTO connections (id, operator_id, display_name, technical_name, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := r.DB.Exec(query, c.ID, c.OperatorID, c.DisplayName, c.TechnicalName, c.Status, c.CreatedAt)
	return err
}

func (r *ConnectionRepository) GetByID(id string) (*model.Connection, error) {
	query := `
        SELECT id, operator_id, display_name, technical_name, status,
               COALESCE(pairing_code, ''), pairing_issued_at, last_synced_at, created_at
        FROM connections WHERE id=$1
    `
	var c model.Connection
	err := r.DB.QueryRow(query, id).Scan(
		&c.ID, &c.OperatorID, &c.DisplayName, &c.TechnicalName, &c.Status,
		&c.PairingCode, &c.PairingIssuedAt, &c.LastSyncedAt, &c.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewConnectionNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *ConnectionRepository) ListByOperator(operatorID string) ([]model.Connection, error) {
	query := `
        SELECT id, operator_id, display_name, technical_name, status,
               COALESCE(pairing_code, ''), pairing_issued_at, last_synced_at, created_at
        FROM connections WHERE operator_id=$1 ORDER BY created_at DESC
    `
	rows, err := r.DB.Query(query, operatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	connections := []model.Connection{}
	for rows.Next() {
		var c model.Connection
		if err := rows.Scan(
			&c.ID, &c.OperatorID, &c.DisplayName, &c.TechnicalName, &c.Status,
			&c.PairingCode, &c.PairingIssuedAt, &c.LastSyncedAt, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		connections = append(connections, c)
	}
	return connections, rows.Err()
}

func (r *ConnectionRepository) CountByOperator(operatorID string) (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM connections WHERE operator_id=$1`, operatorID).Scan(&count)
	return count, err
}

// SetPairingCode stores the freshly issued code. The previous code is
// overwritten; the gateway honors only the most recent one.
func (r *ConnectionRepository) SetPairingCode(id, code string, issuedAt time.Time) error {
	query := `
        UPDATE connections
        SET status=$1, pairing_code=$2, pairing_issued_at=$3
        WHERE id=$4
    `
	_, err := r.DB.Exec(query, model.ConnectionPairing, code, issuedAt, id)
	return err
}

func (r *ConnectionRepository) MarkConnected(id string, syncedAt time.Time) error {
	query := `
        UPDATE connections
        SET status=$1, pairing_code=NULL, pairing_issued_at=NULL, last_synced_at=$2
        WHERE id=$3
    `
	_, err := r.DB.Exec(query, model.ConnectionConnected, syncedAt, id)
	return err
}

func (r *ConnectionRepository) MarkDisconnected(id string) error {
	query := `UPDATE connections SET status=$1, pairing_code=NULL, pairing_issued_at=NULL WHERE id=$2`
	_, err := r.DB.Exec(query, model.ConnectionDisconnected, id)
	return err
}

func (r *ConnectionRepository) Delete(id string) error {
	_, err := r.DB.Exec(`DELETE FROM connections WHERE id=$1`, id)
	return err
}

var _ ConnectionRepositoryInterface = (*ConnectionRepository)(nil)
