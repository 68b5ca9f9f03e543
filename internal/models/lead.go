// internal/models/lead.go
package models

import "time"

// LeadStatus values.
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusConverted = "converted"
	LeadStatusLost      = "lost"
	LeadStatusArchived  = "archived"
)

// CRM sync states.
const (
	CRMSyncPending = "pending"
	CRMSyncSynced  = "synced"
	CRMSyncFailed  = "failed"
)

// Lead is a prospective customer captured with explicit consent.
type Lead struct {
	ID             string     `json:"id" db:"id" validate:"required"`
	ConversationID string     `json:"conversationId" db:"conversation_id" validate:"required"`
	BusinessID     int64      `json:"businessId" db:"business_id"`
	Source         string     `json:"source" db:"source" validate:"required,oneof=telegram whatsapp web organic data_alexia"`
	Status         string     `json:"status" db:"status" validate:"required,oneof=new contacted qualified converted lost archived"`
	FirstName      string     `json:"firstName" db:"first_name" validate:"required,personname"`
	LastName       string     `json:"lastName,omitempty" db:"last_name" validate:"omitempty,personname"`
	Phone          string     `json:"phone,omitempty" db:"phone" validate:"omitempty,phone"`
	Email          string     `json:"email,omitempty" db:"email" validate:"omitempty,email,max=255"`
	City           string     `json:"city,omitempty" db:"city" validate:"omitempty,max=100"`
	Country        string     `json:"country" db:"country" validate:"omitempty,len=2"`
	ConsentGiven   bool       `json:"consentGiven" db:"consent_given" validate:"eq=true"`
	ConsentDate    *time.Time `json:"consentDate,omitempty" db:"consent_date" validate:"required"`
	CRMSyncStatus  string     `json:"crmSyncStatus" db:"crm_sync_status"`
	CRMContactID   string     `json:"crmContactId,omitempty" db:"crm_contact_id"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and last name.
func (l *Lead) FullName() string {
	if l.LastName == "" {
		return l.FirstName
	}
	return l.FirstName + " " + l.LastName
}
