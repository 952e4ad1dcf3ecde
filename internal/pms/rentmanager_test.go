package pms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertilaw/propertilaw/internal/models"
)

func strPtr(s string) *string { return &s }

func newRMFixture(t *testing.T, handler http.HandlerFunc) *rentManagerAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	integration := &models.Integration{
		Type:   models.IntegrationRentManagerAPI,
		APIKey: strPtr("test-key"),
		APIURL: strPtr(server.URL),
	}
	adapter, err := newRentManagerAdapter(integration, "https://unused.example")
	require.NoError(t, err)
	return adapter
}

func TestRentManagerRequiresAPIKey(t *testing.T) {
	_, err := newRentManagerAdapter(&models.Integration{Type: models.IntegrationRentManagerAPI}, "")
	require.Error(t, err)
}

func TestRentManagerSendsBearerAuth(t *testing.T) {
	adapter := newRMFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/ping", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, adapter.TestConnection(context.Background()))
}

func TestFetchPropertiesMapsFlexibleIDs(t *testing.T) {
	adapter := newRMFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/properties", r.URL.Path)
		assert.Equal(t, "Active", r.URL.Query().Get("status"))
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		// Numeric and string IDs, and a row with no ID at all.
		_, _ = w.Write([]byte(`[
			{"PropertyID": 42, "Name": "Cedar Row", "Address": "5 Cedar St", "City": "Jersey City", "State": "NJ", "PostalCode": "07302"},
			{"id": "P-77", "name": "Birch Hill"},
			{"Name": "No ID Here"}
		]`))
	})

	props, err := adapter.FetchProperties(context.Background())
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, "42", props[0].ExternalID)
	assert.Equal(t, "Cedar Row", props[0].Name)
	assert.Equal(t, "07302", props[0].ZipCode)
	assert.Equal(t, "P-77", props[1].ExternalID)
	assert.Equal(t, "Birch Hill", props[1].Name)
}

func TestFetchTenantsMapsDatesAndStatus(t *testing.T) {
	adapter := newRMFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tenants", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"TenantID": 7, "FirstName": "Ana", "LastName": "Silva", "PropertyID": 42,
			 "Balance": 1250.50, "LeaseStartDate": "2025-06-01", "Status": "Current"},
			{"TenantID": 8, "FirstName": "Lee", "LastName": "Ward", "Status": "Past"}
		]`))
	})

	tenants, err := adapter.FetchTenants(context.Background())
	require.NoError(t, err)
	require.Len(t, tenants, 2)

	assert.Equal(t, "7", tenants[0].ExternalID)
	assert.Equal(t, "42", tenants[0].PropertyExternalID)
	assert.Equal(t, 1250.50, tenants[0].CurrentBalance)
	require.NotNil(t, tenants[0].LeaseStartDate)
	assert.Equal(t, 2025, tenants[0].LeaseStartDate.Year())
	assert.True(t, tenants[0].IsActive)

	assert.False(t, tenants[1].IsActive)
	assert.Nil(t, tenants[1].LeaseStartDate)
}

func TestFetchPropertiesSurfacesHTTPErrors(t *testing.T) {
	adapter := newRMFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := adapter.FetchProperties(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestParseDateLayouts(t *testing.T) {
	for _, s := range []string{"2026-03-15", "03/15/2026", "2026-03-15T00:00:00Z"} {
		parsed := parseDate(s)
		require.NotNil(t, parsed, s)
		assert.Equal(t, 2026, parsed.Year())
	}
	assert.Nil(t, parseDate(""))
	assert.Nil(t, parseDate("not a date"))
}

func TestAdapterFactoryDispatch(t *testing.T) {
	_, err := New(&models.Integration{Type: models.IntegrationYardiAPI}, "")
	require.Error(t, err)

	_, err = New(&models.Integration{Type: "SOMETHING_ELSE"}, "")
	require.Error(t, err)

	adapter, err := New(&models.Integration{
		Type:   models.IntegrationRentManagerAPI,
		APIKey: strPtr("k"),
	}, "https://api.rentmanager.com")
	require.NoError(t, err)
	assert.IsType(t, &rentManagerAdapter{}, adapter)

	adapter, err = New(&models.Integration{
		Type:     models.IntegrationYardiSFTP,
		SFTPHost: strPtr("sftp.example"),
		SFTPUser: strPtr("yardi"),
	}, "")
	require.NoError(t, err)
	assert.IsType(t, &yardiSFTPAdapter{}, adapter)
}
