package pms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/propertilaw/propertilaw/internal/models"
)

const rentManagerTimeout = 30 * time.Second

// rentManagerAdapter talks to the RentManager REST API with bearer
// authentication.
type rentManagerAdapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func newRentManagerAdapter(integration *models.Integration, defaultURL string) (*rentManagerAdapter, error) {
	apiKey := deref(integration.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("rentmanager integration %s has no API key", integration.ID)
	}
	baseURL := deref(integration.APIURL)
	if baseURL == "" {
		baseURL = defaultURL
	}
	return &rentManagerAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: rentManagerTimeout},
	}, nil
}

func (a *rentManagerAdapter) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := a.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("rentmanager request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rentmanager returned status %d for %s", resp.StatusCode, path)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("rentmanager response decode failed: %w", err)
	}
	return nil
}

// TestConnection pings the API with the configured credentials.
func (a *rentManagerAdapter) TestConnection(ctx context.Context) error {
	return a.get(ctx, "/v1/ping", nil, nil)
}

// flexID tolerates external IDs serialized as numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type rmProperty struct {
	PropertyID flexID `json:"PropertyID"`
	ID         flexID `json:"id"`
	Name       string `json:"Name"`
	AltName    string `json:"name"`
	Address    string `json:"Address"`
	City       string `json:"City"`
	State      string `json:"State"`
	PostalCode string `json:"PostalCode"`
}

type rmUnit struct {
	UnitID     flexID `json:"UnitID"`
	ID         flexID `json:"id"`
	UnitNumber string `json:"UnitNumber"`
	Name       string `json:"Name"`
}

type rmTenant struct {
	TenantID   flexID  `json:"TenantID"`
	ID         flexID  `json:"id"`
	FirstName  string  `json:"FirstName"`
	LastName   string  `json:"LastName"`
	Email      string  `json:"Email"`
	Phone      string  `json:"PhoneNumber"`
	PropertyID flexID  `json:"PropertyID"`
	UnitID     flexID  `json:"UnitID"`
	Balance    float64 `json:"Balance"`
	LeaseStart string  `json:"LeaseStartDate"`
	LeaseEnd   string  `json:"LeaseEndDate"`
	Status     string  `json:"Status"`
}

func firstID(ids ...flexID) string {
	for _, id := range ids {
		if id != "" {
			return string(id)
		}
	}
	return ""
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// FetchProperties pulls all active properties, capped at the API's
// page limit of 1000.
func (a *rentManagerAdapter) FetchProperties(ctx context.Context) ([]RawProperty, error) {
	var payload []rmProperty
	q := url.Values{}
	q.Set("status", "Active")
	q.Set("limit", "1000")
	if err := a.get(ctx, "/v1/properties", q, &payload); err != nil {
		return nil, err
	}

	props := make([]RawProperty, 0, len(payload))
	for _, p := range payload {
		extID := firstID(p.PropertyID, p.ID)
		if extID == "" {
			continue
		}
		props = append(props, RawProperty{
			ExternalID: extID,
			Name:       firstString(p.Name, p.AltName),
			Address:    p.Address,
			City:       p.City,
			State:      p.State,
			ZipCode:    p.PostalCode,
		})
	}
	return props, nil
}

// FetchUnits pulls the units of one property.
func (a *rentManagerAdapter) FetchUnits(ctx context.Context, propertyExternalID string) ([]RawUnit, error) {
	var payload []rmUnit
	path := "/v1/properties/" + url.PathEscape(propertyExternalID) + "/units"
	if err := a.get(ctx, path, nil, &payload); err != nil {
		return nil, err
	}

	units := make([]RawUnit, 0, len(payload))
	for _, u := range payload {
		extID := firstID(u.UnitID, u.ID)
		if extID == "" {
			continue
		}
		units = append(units, RawUnit{
			ExternalID: extID,
			UnitNumber: firstString(u.UnitNumber, u.Name),
		})
	}
	return units, nil
}

// FetchTenants pulls all tenants across properties.
func (a *rentManagerAdapter) FetchTenants(ctx context.Context) ([]RawTenant, error) {
	var payload []rmTenant
	if err := a.get(ctx, "/v1/tenants", nil, &payload); err != nil {
		return nil, err
	}

	tenants := make([]RawTenant, 0, len(payload))
	for _, t := range payload {
		extID := firstID(t.TenantID, t.ID)
		if extID == "" {
			continue
		}
		tenants = append(tenants, RawTenant{
			ExternalID:         extID,
			FirstName:          t.FirstName,
			LastName:           t.LastName,
			Email:              t.Email,
			Phone:              t.Phone,
			PropertyExternalID: string(t.PropertyID),
			UnitExternalID:     string(t.UnitID),
			CurrentBalance:     t.Balance,
			LeaseStartDate:     parseDate(t.LeaseStart),
			LeaseEndDate:       parseDate(t.LeaseEnd),
			IsActive:           t.Status == "" || t.Status == "Current" || t.Status == "Active",
		})
	}
	return tenants, nil
}

// parseDate accepts the date shapes the API is known to emit.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	// Epoch seconds as a last resort
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
		t := time.Unix(secs, 0).UTC()
		return &t
	}
	return nil
}
