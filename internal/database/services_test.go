package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herald-dns/herald/internal/dnssd"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "herald.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestServiceRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	svc := &dnssd.Service{
		Name:         "printer",
		InstanceName: "My Printer",
		Type:         "_ipp._tcp",
		Port:         631,
		Priority:     10,
		Weight:       5,
		TXT:          []string{"paper=a4", "duplex"},
	}
	require.NoError(t, db.PutService(ctx, svc))

	got, err := db.GetService(ctx, "printer")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, svc.InstanceName, got.InstanceName)
	assert.Equal(t, svc.Type, got.Type)
	assert.Equal(t, svc.Port, got.Port)
	assert.Equal(t, svc.TXT, got.TXT)
}

func TestPutServiceUpserts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	svc := &dnssd.Service{Name: "web", InstanceName: "Web", Type: "_http._tcp", Port: 80}
	require.NoError(t, db.PutService(ctx, svc))

	svc.Port = 8080
	require.NoError(t, db.PutService(ctx, svc))

	got, err := db.GetService(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, uint16(8080), got.Port)

	all, err := db.ListServices(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetServiceAbsent(t *testing.T) {
	db := openTestDB(t)

	got, err := db.GetService(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteService(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.PutService(ctx, &dnssd.Service{
		Name: "web", InstanceName: "Web", Type: "_http._tcp", Port: 80,
	}))

	deleted, err := db.DeleteService(ctx, "web")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = db.DeleteService(ctx, "web")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestListServicesOrdered(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, db.PutService(ctx, &dnssd.Service{
			Name: name, InstanceName: name, Type: "_x._tcp", Port: 1,
		}))
	}

	all, err := db.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "mid", all[1].Name)
	assert.Equal(t, "zeta", all[2].Name)
}
