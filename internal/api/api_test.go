package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herald-dns/herald/internal/api/handlers"
	"github.com/herald-dns/herald/internal/api/models"
	"github.com/herald-dns/herald/internal/config"
	"github.com/herald-dns/herald/internal/dnssd"
	"github.com/herald-dns/herald/internal/host"
	"github.com/herald-dns/herald/internal/scope"
	"github.com/herald-dns/herald/internal/transport"
)

// nullConn drops everything sent and blocks on receive.
type nullConn struct{}

func (nullConn) Send(context.Context, []byte, net.Addr) error { return nil }

func (nullConn) Receive(ctx context.Context) (transport.Datagram, error) {
	<-ctx.Done()
	return transport.Datagram{}, ctx.Err()
}

func (nullConn) Close() error { return nil }

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.API.Host = "127.0.0.1"
	cfg.API.Port = 0
	cfg.API.APIKey = apiKey

	h := host.New("apihost", nil)
	s := scope.New(nullConn{}, h, 0, nil)
	mgr := dnssd.NewManager(nil)
	handler := handlers.New(s, mgr, h, nil, nil)
	return New(cfg, handler, nil)
}

func doJSON(t *testing.T, srv *Server, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, "")

	w := doJSON(t, srv, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestAPIKeyRequired(t *testing.T) {
	srv := newTestServer(t, "sekrit")

	w := doJSON(t, srv, http.MethodGet, "/api/v1/services", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/services", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/services", "sekrit", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServiceLifecycle(t *testing.T) {
	srv := newTestServer(t, "")

	req := models.ServiceRequest{
		Name:         "web",
		InstanceName: "My Web",
		Type:         "_http._tcp",
		Port:         8080,
		TXT:          []string{"path=/"},
	}
	w := doJSON(t, srv, http.MethodPost, "/api/v1/services", "", req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.ServiceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "My Web._http._tcp.local", created.Instance)

	// Duplicate registration conflicts.
	w = doJSON(t, srv, http.MethodPost, "/api/v1/services", "", req)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Listed.
	w = doJSON(t, srv, http.MethodGet, "/api/v1/services", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list models.ServiceListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Services, 1)

	// The zone now holds the PTR/SRV/TXT triple.
	w = doJSON(t, srv, http.MethodGet, "/api/v1/zone", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dump models.ZoneDumpResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dump))
	assert.Len(t, dump.Records, 3)

	// Unregister and verify the zone empties.
	w = doJSON(t, srv, http.MethodDelete, "/api/v1/services/web", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/zone", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dump))
	assert.Empty(t, dump.Records)

	w = doJSON(t, srv, http.MethodDelete, "/api/v1/services/web", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateServiceValidation(t *testing.T) {
	srv := newTestServer(t, "")

	w := doJSON(t, srv, http.MethodPost, "/api/v1/services", "", models.ServiceRequest{
		Name:         "bad",
		InstanceName: "Bad",
		Type:         "not-a-type",
		Port:         1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHostnameEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	w := doJSON(t, srv, http.MethodGet, "/api/v1/hostname", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HostnameResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "apihost.local", resp.Hostname)
}
