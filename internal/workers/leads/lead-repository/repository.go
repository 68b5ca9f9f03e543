// internal/workers/leads/lead-repository/repository.go
package leadrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/models"
)

var (
	ErrLeadNotFound = errors.New("LEAD_NOT_FOUND")
	ErrLeadExists   = errors.New("LEAD_EXISTS")
)

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS leads (
		id UUID PRIMARY KEY,
		conversation_id VARCHAR(100) NOT NULL UNIQUE,
		business_id BIGINT,
		source VARCHAR(30) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'new',
		first_name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100),
		phone VARCHAR(20),
		email VARCHAR(255),
		city VARCHAR(100),
		country VARCHAR(2),
		consent_given BOOLEAN NOT NULL,
		consent_date TIMESTAMPTZ NOT NULL,
		crm_sync_status VARCHAR(20) NOT NULL DEFAULT 'pending',
		crm_contact_id VARCHAR(100),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_status ON leads (status)`,
}

const (
	leadColumns = `id, conversation_id, business_id, source, status, first_name, last_name,
		phone, email, city, country, consent_given, consent_date, crm_sync_status,
		crm_contact_id, created_at, updated_at`

	findByConversationSQL = `SELECT ` + leadColumns + ` FROM leads WHERE conversation_id = $1`

	insertLeadSQL = `INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (conversation_id) DO NOTHING`

	updateCRMSyncSQL = `UPDATE leads SET crm_sync_status = $2, crm_contact_id = $3, updated_at = $4
		WHERE id = $1`
)

// Repository is the lead persistence used by the dialogue router and follow-up.
type Repository interface {
	FindByConversation(ctx context.Context, conversationID string) (*models.Lead, error)
	Create(ctx context.Context, lead *models.Lead) error
	UpdateCRMSync(ctx context.Context, id, status, contactID string) error
}

type PostgresRepository struct {
	db     *sql.DB
	now    func() time.Time
	logger logger.Logger
}

func NewPostgresRepository(db *sql.DB, log logger.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		now:    time.Now,
		logger: log.With(map[string]interface{}{"component": "lead-repository"}),
	}
}

// FindByConversation returns ErrLeadNotFound when the conversation has no lead.
func (r *PostgresRepository) FindByConversation(ctx context.Context, conversationID string) (*models.Lead, error) {
	var (
		lead                                  models.Lead
		businessID                            sql.NullInt64
		lastName, phone, email, city, country sql.NullString
		contactID                             sql.NullString
		consentDate                           sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, findByConversationSQL, conversationID).Scan(
		&lead.ID, &lead.ConversationID, &businessID, &lead.Source, &lead.Status,
		&lead.FirstName, &lastName, &phone, &email, &city, &country,
		&lead.ConsentGiven, &consentDate, &lead.CRMSyncStatus, &contactID,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query lead: %w", err)
	}

	lead.BusinessID = businessID.Int64
	lead.LastName = lastName.String
	lead.Phone = phone.String
	lead.Email = email.String
	lead.City = city.String
	lead.Country = country.String
	lead.CRMContactID = contactID.String
	if consentDate.Valid {
		t := consentDate.Time
		lead.ConsentDate = &t
	}
	return &lead, nil
}

// Create inserts lead. A second lead for the same conversation is rejected
// with ErrLeadExists.
func (r *PostgresRepository) Create(ctx context.Context, lead *models.Lead) error {
	now := r.now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
	if lead.CRMSyncStatus == "" {
		lead.CRMSyncStatus = models.CRMSyncPending
	}

	var businessID sql.NullInt64
	if lead.BusinessID != 0 {
		businessID = sql.NullInt64{Int64: lead.BusinessID, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, insertLeadSQL,
		lead.ID, lead.ConversationID, businessID, lead.Source, lead.Status,
		lead.FirstName, nullString(lead.LastName), nullString(lead.Phone), nullString(lead.Email),
		nullString(lead.City), nullString(lead.Country), lead.ConsentGiven, lead.ConsentDate,
		lead.CRMSyncStatus, nullString(lead.CRMContactID), lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrLeadExists
	}

	r.logger.Info("lead created", map[string]interface{}{
		"leadId":         lead.ID,
		"conversationId": lead.ConversationID,
		"source":         lead.Source,
	})
	return nil
}

func (r *PostgresRepository) UpdateCRMSync(ctx context.Context, id, status, contactID string) error {
	res, err := r.db.ExecContext(ctx, updateCRMSyncSQL, id, status, nullString(contactID), r.now().UTC())
	if err != nil {
		return fmt.Errorf("update lead crm sync: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
