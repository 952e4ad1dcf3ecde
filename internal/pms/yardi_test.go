package pms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertilaw/propertilaw/internal/models"
)

func TestYardiAdapterRequiresHostAndUser(t *testing.T) {
	_, err := newYardiSFTPAdapter(&models.Integration{Type: models.IntegrationYardiSFTP})
	require.Error(t, err)

	host := "sftp.example"
	_, err = newYardiSFTPAdapter(&models.Integration{Type: models.IntegrationYardiSFTP, SFTPHost: &host})
	require.Error(t, err)
}

func TestYardiAdapterDefaults(t *testing.T) {
	host := "sftp.example"
	user := "yardi"
	adapter, err := newYardiSFTPAdapter(&models.Integration{
		Type:     models.IntegrationYardiSFTP,
		SFTPHost: &host,
		SFTPUser: &user,
	})
	require.NoError(t, err)
	assert.Equal(t, 22, adapter.port)
	assert.Equal(t, ".", adapter.dir)
}

func TestParseCSVLowercasesHeadersAndToleratesRaggedRows(t *testing.T) {
	rows, err := parseCSV(strings.NewReader(strings.Join([]string{
		"Property_ID,Property_Name, Address",
		"P-1,Cedar Row,5 Cedar St",
		"P-2,Birch Hill",
	}, "\n")))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "P-1", rows[0]["property_id"])
	assert.Equal(t, "Cedar Row", rows[0]["property_name"])
	assert.Equal(t, "5 Cedar St", rows[0]["address"])

	assert.Equal(t, "P-2", rows[1]["property_id"])
	assert.Equal(t, "", rows[1]["address"])
}

func TestPickFallsThroughColumns(t *testing.T) {
	row := map[string]string{"propertyid": "P-9", "unit": ""}
	assert.Equal(t, "P-9", pick(row, "property_id", "propertyid", "code"))
	assert.Equal(t, "", pick(row, "unit", "unit_id"))
}
