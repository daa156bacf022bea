package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/slugzin/leadflow-backend/internal/errors"
	"github.com/slugzin/leadflow-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id string) (*model.Campaign, error)
	ListCampaigns(operatorID string, offset, limit int, kind string) ([]*model.Campaign, int, error)
	NamesWithPrefix(operatorID, prefix string) ([]string, error)
	IncrementResult(campaignID string, status model.SendStatus) error
	SoftDelete(id string) error
	GetCampaignStats(campaignID string) (map[string]int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(c *model.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now()

	query := `
        INSERT INTO campaigns (id, operator_id, name, kind, connection_id, targeted, sent, failed, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := r.DB.Exec(query, c.ID, c.OperatorID, c.Name, c.Kind, c.ConnectionID, c.Targeted, c.Sent, c.Failed, c.CreatedAt)
	return err
}

func (r *CampaignRepository) GetByID(id string) (*model.Campaign, error) {
	query := `
        SELECT id, operator_id, name, kind, connection_id, targeted, sent, failed, created_at, updated_at
        FROM campaigns WHERE id=$1 AND deleted_at IS NULL
    `
	var c model.Campaign
	err := r.DB.QueryRow(query, id).Scan(
		&c.ID, &c.OperatorID, &c.Name, &c.Kind, &c.ConnectionID,
		&c.Targeted, &c.Sent, &c.Failed, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) ListCampaigns(operatorID string, offset, limit int, kind string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `
        SELECT id, operator_id, name, kind, connection_id, targeted, sent, failed, created_at, updated_at
        FROM campaigns WHERE operator_id=$1 AND deleted_at IS NULL
    `
	args := []interface{}{operatorID}
	argPos := 2

	if kind != "" {
		query += fmt.Sprintf(" AND kind=$%d", argPos)
		args = append(args, kind)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c := &model.Campaign{}
		if err := rows.Scan(
			&c.ID, &c.OperatorID, &c.Name, &c.Kind, &c.ConnectionID,
			&c.Targeted, &c.Sent, &c.Failed, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE operator_id=$1 AND deleted_at IS NULL`
	argsCount := []interface{}{operatorID}
	if kind != "" {
		countQuery += " AND kind=$2"
		argsCount = append(argsCount, kind)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// NamesWithPrefix returns every campaign name ever created with the
// prefix, soft-deleted ones included, so numeric suffixes are never
// handed out twice.
func (r *CampaignRepository) NamesWithPrefix(operatorID, prefix string) ([]string, error) {
	query := `SELECT name FROM campaigns WHERE operator_id=$1 AND name LIKE $2 || '%'`
	rows, err := r.DB.Query(query, operatorID, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *CampaignRepository) IncrementResult(campaignID string, status model.SendStatus) error {
	column := ""
	switch status {
	case model.SendSent:
		column = "sent"
	case model.SendFailed:
		column = "failed"
	default:
		return nil
	}
	query := fmt.Sprintf(`UPDATE campaigns SET %s=%s+1, updated_at=NOW() WHERE id=$1`, column, column)
	_, err := r.DB.Exec(query, campaignID)
	return err
}

// SoftDelete hides the campaign but keeps the row so its name suffix
// stays reserved.
func (r *CampaignRepository) SoftDelete(id string) error {
	result, err := r.DB.Exec(`UPDATE campaigns SET deleted_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErrors.NewCampaignNotFound(id)
	}
	return nil
}

func (r *CampaignRepository) GetCampaignStats(campaignID string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM scheduled_sends WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"pending": 0, "processing": 0, "sent": 0, "failed": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
