// internal/models/intent.go
package models

// IntentType is the closed set of actions a message can be classified into.
type IntentType string

const (
	IntentProductSearch  IntentType = "PRODUCT_SEARCH"
	IntentBusinessSearch IntentType = "BUSINESS_SEARCH"
	IntentLeadCapture    IntentType = "LEAD_CAPTURE"
	IntentComparePrices  IntentType = "COMPARE_PRICES"
	IntentGeneralQuery   IntentType = "GENERAL_QUERY"
)

// IntentTypes lists every IntentType in declaration order.
var IntentTypes = []IntentType{
	IntentProductSearch,
	IntentBusinessSearch,
	IntentLeadCapture,
	IntentComparePrices,
	IntentGeneralQuery,
}

// Valid reports whether t is one of the known intent types.
func (t IntentType) Valid() bool {
	for _, known := range IntentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// LeadFields are the contact details extracted for LEAD_CAPTURE.
type LeadFields struct {
	HasConsent bool   `json:"hasConsent"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	City       string `json:"city,omitempty"`
}

// Intent is the classified purpose of one inbound message.
type Intent struct {
	Type       IntentType  `json:"intent"`
	SearchTerm string      `json:"searchTerm,omitempty"`
	Confidence float64     `json:"confidence"`
	Lead       *LeadFields `json:"leadData,omitempty"`
}

// DefaultIntent is used whenever classification fails.
func DefaultIntent() Intent {
	return Intent{Type: IntentGeneralQuery, Confidence: 0}
}
