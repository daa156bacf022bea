package repository

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/slugzin/leadflow-backend/internal/model"
)

type RecipientRepositoryInterface interface {
	GetByIDs(operatorID string, ids []string) ([]model.Recipient, error)
	ListBySearch(operatorID, searchTerm string, offset, limit int) ([]model.Recipient, error)
	Create(rec *model.Recipient) error
	UpdateStatus(id, status string) error
}

type RecipientRepository struct {
	DB *sql.DB
}

const recipientColumns = `
    id, operator_id, company_name, category, website, rating, review_count,
    address, phone, search_term, status, captured_at
`

func scanRecipient(row interface{ Scan(...interface{}) error }, rec *model.Recipient) error {
	return row.Scan(
		&rec.ID, &rec.OperatorID, &rec.CompanyName, &rec.Category, &rec.Website,
		&rec.Rating, &rec.ReviewCount, &rec.Address, &rec.Phone, &rec.SearchTerm,
		&rec.Status, &rec.CapturedAt,
	)
}

// GetByIDs fetches the requested leads. Result order is whatever the
// database returns; callers that care about selection order reorder it.
func (r *RecipientRepository) GetByIDs(operatorID string, ids []string) ([]model.Recipient, error) {
	if len(ids) == 0 {
		return []model.Recipient{}, nil
	}
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE operator_id=$1 AND id = ANY($2)`
	rows, err := r.DB.Query(query, operatorID, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []model.Recipient{}
	for rows.Next() {
		var rec model.Recipient
		if err := scanRecipient(rows, &rec); err != nil {
			return nil, err
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

func (r *RecipientRepository) ListBySearch(operatorID, searchTerm string, offset, limit int) ([]model.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE operator_id=$1`
	args := []interface{}{operatorID}
	if searchTerm != "" {
		query += ` AND search_term=$2 ORDER BY captured_at DESC LIMIT $3 OFFSET $4`
		args = append(args, searchTerm, limit, offset)
	} else {
		query += ` ORDER BY captured_at DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []model.Recipient{}
	for rows.Next() {
		var rec model.Recipient
		if err := scanRecipient(rows, &rec); err != nil {
			return nil, err
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

func (r *RecipientRepository) Create(rec *model.Recipient) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	query := `
        INSERT INTO recipients
        (id, operator_id, company_name, category, website, rating, review_count,
         address, phone, search_term, status, captured_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `
	_, err := r.DB.Exec(
		query,
		rec.ID, rec.OperatorID, rec.CompanyName, rec.Category, rec.Website,
		rec.Rating, rec.ReviewCount, rec.Address, rec.Phone, rec.SearchTerm,
		rec.Status, rec.CapturedAt,
	)
	return err
}

func (r *RecipientRepository) UpdateStatus(id, status string) error {
	_, err := r.DB.Exec(`UPDATE recipients SET status=$1 WHERE id=$2`, status, id)
	return err
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
