// internal/workers/leads/notify-lead/models.go
package notifylead

import "directory-assistant/internal/models"

type Input struct {
	Lead *models.Lead `json:"lead"`
}

type Output struct {
	CRMContactID string `json:"crmContactId,omitempty"`
	CRMSynced    bool   `json:"crmSynced"`
	EmailSent    bool   `json:"emailSent"`
	SMSSent      bool   `json:"smsSent"`
}
