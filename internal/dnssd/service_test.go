package dnssd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herald-dns/herald/internal/dns"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		svc  Service
		ok   bool
	}{
		{"valid tcp", Service{Name: "web", InstanceName: "My Web", Type: "_http._tcp", Port: 80}, true},
		{"valid udp", Service{Name: "sip", InstanceName: "Phone", Type: "_sip._udp", Port: 5060}, true},
		{"missing instance", Service{Name: "web", Type: "_http._tcp", Port: 80}, false},
		{"missing type", Service{Name: "web", InstanceName: "My Web", Port: 80}, false},
		{"bad proto", Service{Name: "web", InstanceName: "My Web", Type: "_http._sctp", Port: 80}, false},
		{"no underscore", Service{Name: "web", InstanceName: "My Web", Type: "http._tcp", Port: 80}, false},
		{"missing port", Service{Name: "web", InstanceName: "My Web", Type: "_http._tcp"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.svc.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidService)
			}
		})
	}
}

func TestUpdateRRsSynthesizesTriple(t *testing.T) {
	svc := &Service{
		Name:         "printer",
		InstanceName: "My Printer",
		Type:         "_ipp._tcp",
		Port:         631,
		Priority:     10,
		Weight:       5,
		TXT:          []string{"paper=a4", "duplex"},
	}
	require.NoError(t, svc.UpdateRRs("myhost.local"))

	rrs := svc.Records()
	require.Len(t, rrs, 3)
	ptr, srv, txt := rrs[0], rrs[1], rrs[2]

	assert.Equal(t, dns.TypePTR, ptr.Key.Type)
	assert.Equal(t, "_ipp._tcp.local", ptr.Key.Name)
	assert.Equal(t, "My Printer._ipp._tcp.local", ptr.Data.(string))
	assert.Equal(t, dns.MDNSDefaultTTL, ptr.TTL)

	assert.Equal(t, dns.TypeSRV, srv.Key.Type)
	assert.Equal(t, "my printer._ipp._tcp.local", srv.Key.Name)
	srvData := srv.Data.(dns.SRVData)
	assert.Equal(t, uint16(631), srvData.Port)
	assert.Equal(t, uint16(10), srvData.Priority)
	assert.Equal(t, uint16(5), srvData.Weight)
	assert.Equal(t, "myhost.local", srvData.Target)

	assert.Equal(t, dns.TypeTXT, txt.Key.Type)
	items := txt.Data.(dns.TXTItems)
	require.Len(t, items, 2)
	assert.Equal(t, []byte("paper=a4"), []byte(items[0]))
	assert.Equal(t, []byte("duplex"), []byte(items[1]))
}

func TestUpdateRRsEmptyTXT(t *testing.T) {
	svc := &Service{Name: "bare", InstanceName: "Bare", Type: "_x._tcp", Port: 1}
	require.NoError(t, svc.UpdateRRs("h.local"))

	txt := svc.Records()[2]
	items := txt.Data.(dns.TXTItems)
	// RFC 6763 Section 6.1: a single zero-length item, not an empty list.
	require.Len(t, items, 1)
	assert.Empty(t, items[0])
}

func TestTXTBase64Values(t *testing.T) {
	items, err := txtItems([]string{"blob=base64:aGVsbG8="})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []byte("blob=hello"), []byte(items[0]))

	_, err = txtItems([]string{"blob=base64:!!!"})
	assert.ErrorIs(t, err, ErrInvalidService)
}

func TestUpdateRRsRetargetsSRV(t *testing.T) {
	svc := &Service{Name: "web", InstanceName: "Web", Type: "_http._tcp", Port: 80}
	require.NoError(t, svc.UpdateRRs("a.local"))
	require.NoError(t, svc.UpdateRRs("a-2.local"))

	srvData := svc.Records()[1].Data.(dns.SRVData)
	assert.Equal(t, "a-2.local", srvData.Target)
}

func TestLoadDirs(t *testing.T) {
	etc := t.TempDir()
	lib := t.TempDir()

	write := func(dir, name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	write(etc, "printer.dnssd", "instance_name: My Printer\ntype: _ipp._tcp\nport: 631\ntxt:\n  - paper=a4\n")
	write(lib, "printer.dnssd", "instance_name: Vendor Printer\ntype: _ipp._tcp\nport: 631\n")
	write(lib, "ssh.dnssd", "instance_name: Shell\ntype: _ssh._tcp\nport: 22\n")
	write(lib, "ignored.conf", "not a service\n")

	m := NewManager(nil)
	require.NoError(t, m.LoadDirs([]string{etc, lib}))

	svcs := m.List()
	require.Len(t, svcs, 2)

	printer, ok := m.Get("printer")
	require.True(t, ok)
	// The earlier directory shadows the later one.
	assert.Equal(t, "My Printer", printer.InstanceName)

	_, ok = m.Get("ssh")
	assert.True(t, ok)
}

func TestLoadDirsRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.dnssd"),
		[]byte("type: _x._tcp\nport: 9\n"), 0o644))

	m := NewManager(nil)
	assert.ErrorIs(t, m.LoadDirs([]string{dir}), ErrInvalidService)
}

// fakePublisher records publishes and withdrawals.
type fakePublisher struct {
	published []*dns.ResourceRecord
	withdrawn []*dns.ResourceRecord
}

func (p *fakePublisher) Publish(rr *dns.ResourceRecord, probe bool) error {
	p.published = append(p.published, rr)
	return nil
}

func (p *fakePublisher) Withdraw(rr *dns.ResourceRecord) {
	p.withdrawn = append(p.withdrawn, rr)
}

func TestRegisterAllAndHostnameChange(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.Add(&Service{Name: "web", InstanceName: "Web", Type: "_http._tcp", Port: 80}))

	pub := &fakePublisher{}
	require.NoError(t, m.RegisterAll(pub, "a.local"))
	require.Len(t, pub.published, 3)

	m.UpdateHostname(pub, "a-2.local")
	assert.Len(t, pub.withdrawn, 3)
	assert.Len(t, pub.published, 6)

	srvData := pub.published[4].Data.(dns.SRVData)
	assert.Equal(t, "a-2.local", srvData.Target)
}

func TestRemoveWithdraws(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.Add(&Service{Name: "web", InstanceName: "Web", Type: "_http._tcp", Port: 80}))

	pub := &fakePublisher{}
	require.NoError(t, m.RegisterAll(pub, "a.local"))

	assert.True(t, m.Remove("web", pub))
	assert.Len(t, pub.withdrawn, 3)
	assert.False(t, m.Remove("web", pub))
}
