package zoho

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	httpclient "directory-assistant/internal/common/http"
)

const DefaultBaseURL = "https://www.zohoapis.com/crm/v3"

// CRMClient pushes captured leads to the Zoho CRM Leads module.
type CRMClient struct {
	oauthToken string
	baseURL    string
	httpClient *httpclient.Client
}

// Lead is the Zoho record shape.
type Lead struct {
	ID          string `json:"id,omitempty"`
	FirstName   string `json:"First_Name,omitempty"`
	LastName    string `json:"Last_Name"`
	Email       string `json:"Email,omitempty"`
	Phone       string `json:"Phone,omitempty"`
	City        string `json:"City,omitempty"`
	Country     string `json:"Country,omitempty"`
	LeadSource  string `json:"Lead_Source,omitempty"`
	LeadStatus  string `json:"Lead_Status,omitempty"`
	Description string `json:"Description,omitempty"`
}

type recordResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

func NewCRMClient(baseURL, oauthToken string, timeout time.Duration) *CRMClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CRMClient{
		oauthToken: oauthToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpclient.NewClient(timeout),
	}
}

func (c *CRMClient) headers() map[string]string {
	return map[string]string{"Authorization": "Zoho-oauthtoken " + c.oauthToken}
}

// CreateLead inserts lead and returns the Zoho record id.
func (c *CRMClient) CreateLead(ctx context.Context, lead *Lead) (string, error) {
	if lead.LastName == "" {
		// Last_Name is mandatory in Zoho; fall back to the first name
		lead.LastName = lead.FirstName
	}

	var resp recordResponse
	payload := map[string]interface{}{"data": []*Lead{lead}}
	if err := c.httpClient.DoJSON(ctx, http.MethodPost, c.baseURL+"/Leads", c.headers(), payload, &resp); err != nil {
		return "", fmt.Errorf("create lead: %w", err)
	}
	return firstRecordID(resp)
}

// UpdateLeadStatus sets Lead_Status on an existing record.
func (c *CRMClient) UpdateLeadStatus(ctx context.Context, id, status string) error {
	var resp recordResponse
	payload := map[string]interface{}{"data": []Lead{{LeadStatus: status}}}
	url := fmt.Sprintf("%s/Leads/%s", c.baseURL, id)
	if err := c.httpClient.DoJSON(ctx, http.MethodPut, url, c.headers(), payload, &resp); err != nil {
		return fmt.Errorf("update lead %s: %w", id, err)
	}
	_, err := firstRecordID(resp)
	return err
}

// GetLead fetches a record by id.
func (c *CRMClient) GetLead(ctx context.Context, id string) (*Lead, error) {
	var resp struct {
		Data []Lead `json:"data"`
	}
	url := fmt.Sprintf("%s/Leads/%s", c.baseURL, id)
	if err := c.httpClient.DoJSON(ctx, http.MethodGet, url, c.headers(), nil, &resp); err != nil {
		return nil, fmt.Errorf("get lead %s: %w", id, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("lead %s not found", id)
	}
	return &resp.Data[0], nil
}

func firstRecordID(resp recordResponse) (string, error) {
	if len(resp.Data) == 0 {
		return "", errors.New("no data in response")
	}
	if resp.Data[0].Status != "success" {
		return "", fmt.Errorf("zoho rejected record: %s (%s)", resp.Data[0].Message, resp.Data[0].Code)
	}
	return resp.Data[0].Details.ID, nil
}
