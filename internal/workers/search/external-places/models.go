// internal/workers/search/external-places/models.go
package externalplaces

const fieldMask = "places.id,places.displayName,places.formattedAddress,places.location," +
	"places.rating,places.primaryType,places.nationalPhoneNumber"

type searchTextRequest struct {
	TextQuery      string        `json:"textQuery"`
	LanguageCode   string        `json:"languageCode,omitempty"`
	MaxResultCount int           `json:"maxResultCount,omitempty"`
	LocationBias   *locationBias `json:"locationBias,omitempty"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type searchTextResponse struct {
	Places []place `json:"places"`
}

type place struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress    string   `json:"formattedAddress"`
	Location            *latLng  `json:"location"`
	Rating              *float64 `json:"rating"`
	PrimaryType         string   `json:"primaryType"`
	NationalPhoneNumber string   `json:"nationalPhoneNumber"`
}
