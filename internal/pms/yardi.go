package pms

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/propertilaw/propertilaw/internal/models"
)

const yardiDialTimeout = 30 * time.Second

// yardiSFTPAdapter reads Yardi export CSVs dropped on an SFTP server.
// Yardi exports carry properties and tenants; units are not modeled.
type yardiSFTPAdapter struct {
	host     string
	port     int
	user     string
	password string
	dir      string
}

func newYardiSFTPAdapter(integration *models.Integration) (*yardiSFTPAdapter, error) {
	host := deref(integration.SFTPHost)
	user := deref(integration.SFTPUser)
	if host == "" || user == "" {
		return nil, fmt.Errorf("yardi sftp integration %s is missing host or user", integration.ID)
	}
	port := 22
	if integration.SFTPPort != nil && *integration.SFTPPort > 0 {
		port = *integration.SFTPPort
	}
	dir := deref(integration.SFTPPath)
	if dir == "" {
		dir = "."
	}
	return &yardiSFTPAdapter{
		host:     host,
		port:     port,
		user:     user,
		password: deref(integration.SFTPPassword),
		dir:      dir,
	}, nil
}

// connect dials the SFTP server. Yardi export hosts rotate keys per
// customer environment, so host keys are not pinned.
func (a *yardiSFTPAdapter) connect(ctx context.Context) (*sftp.Client, func(), error) {
	conf := &ssh.ClientConfig{
		User:            a.user,
		Auth:            []ssh.AuthMethod{ssh.Password(a.password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         yardiDialTimeout,
	}

	addr := net.JoinHostPort(a.host, strconv.Itoa(a.port))
	dialer := net.Dialer{Timeout: yardiDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("sftp dial failed: %w", err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, conf)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("ssh handshake failed: %w", err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, nil, fmt.Errorf("sftp session failed: %w", err)
	}
	cleanup := func() {
		client.Close()
		sshClient.Close()
	}
	return client, cleanup, nil
}

// TestConnection verifies the server is reachable and the export
// directory is listable.
func (a *yardiSFTPAdapter) TestConnection(ctx context.Context) error {
	client, cleanup, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	_, err = client.ReadDir(a.dir)
	return err
}

// latestCSV finds the most recent *.csv file whose name contains the
// given marker, in any letter case.
func (a *yardiSFTPAdapter) latestCSV(client *sftp.Client, marker string) (string, error) {
	entries, err := client.ReadDir(a.dir)
	if err != nil {
		return "", fmt.Errorf("sftp list failed: %w", err)
	}

	var best string
	var bestTime time.Time
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if !strings.HasSuffix(name, ".csv") || !strings.Contains(name, marker) {
			continue
		}
		if best == "" || e.ModTime().After(bestTime) {
			best = e.Name()
			bestTime = e.ModTime()
		}
	}
	if best == "" {
		return "", fmt.Errorf("no %s export found in %s", marker, a.dir)
	}
	return path.Join(a.dir, best), nil
}

// readCSV downloads a CSV and parses it into header-keyed rows.
func (a *yardiSFTPAdapter) readCSV(client *sftp.Client, filePath string) ([]map[string]string, error) {
	f, err := client.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("sftp open %s failed: %w", filePath, err)
	}
	defer f.Close()
	return parseCSV(f)
}

// parseCSV parses a CSV into header-keyed rows. Header names are
// lowercased; ragged rows are tolerated.
func parseCSV(src io.Reader) ([]map[string]string, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("csv header read failed: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row read failed: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// pick returns the first non-empty value among the named columns.
func pick(row map[string]string, cols ...string) string {
	for _, c := range cols {
		if v := row[c]; v != "" {
			return v
		}
	}
	return ""
}

// FetchProperties parses the latest properties export.
func (a *yardiSFTPAdapter) FetchProperties(ctx context.Context) ([]RawProperty, error) {
	client, cleanup, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	file, err := a.latestCSV(client, "properties")
	if err != nil {
		return nil, err
	}
	rows, err := a.readCSV(client, file)
	if err != nil {
		return nil, err
	}

	props := make([]RawProperty, 0, len(rows))
	for _, row := range rows {
		extID := pick(row, "property_id", "propertyid", "code")
		if extID == "" {
			continue
		}
		props = append(props, RawProperty{
			ExternalID: extID,
			Name:       pick(row, "property_name", "name"),
			Address:    pick(row, "address", "address1"),
			City:       row["city"],
			State:      row["state"],
			ZipCode:    pick(row, "zip", "zipcode", "postal_code"),
		})
	}
	return props, nil
}

// FetchUnits returns an empty slice; Yardi exports do not carry units.
func (a *yardiSFTPAdapter) FetchUnits(ctx context.Context, propertyExternalID string) ([]RawUnit, error) {
	return nil, nil
}

// FetchTenants parses the latest tenants export.
func (a *yardiSFTPAdapter) FetchTenants(ctx context.Context) ([]RawTenant, error) {
	client, cleanup, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	file, err := a.latestCSV(client, "tenants")
	if err != nil {
		return nil, err
	}
	rows, err := a.readCSV(client, file)
	if err != nil {
		return nil, err
	}

	tenants := make([]RawTenant, 0, len(rows))
	for _, row := range rows {
		extID := pick(row, "tenant_id", "tenantid", "code")
		if extID == "" {
			continue
		}
		balance, _ := strconv.ParseFloat(pick(row, "balance", "current_balance"), 64)
		status := strings.ToLower(pick(row, "status"))
		tenants = append(tenants, RawTenant{
			ExternalID:         extID,
			FirstName:          pick(row, "first_name", "firstname"),
			LastName:           pick(row, "last_name", "lastname"),
			Email:              row["email"],
			Phone:              pick(row, "phone", "phone_number"),
			PropertyExternalID: pick(row, "property_id", "propertyid"),
			UnitExternalID:     pick(row, "unit_id", "unitid", "unit"),
			CurrentBalance:     balance,
			LeaseStartDate:     parseDate(pick(row, "lease_start", "lease_start_date")),
			LeaseEndDate:       parseDate(pick(row, "lease_end", "lease_end_date")),
			IsActive:           status == "" || status == "current" || status == "active",
		})
	}
	return tenants, nil
}
