// Package dnssd loads DNS-SD service definitions and synthesizes the
// PTR/SRV/TXT record triple each service publishes (RFC 6763).
//
// Services come from two places: .dnssd files in the configured service
// directories, and runtime registrations through the management API. Either
// way the record synthesis is identical and re-runs whenever the advertised
// hostname changes.
package dnssd

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/herald-dns/herald/internal/dns"
)

var (
	// ErrInvalidService marks definitions that fail validation.
	ErrInvalidService = errors.New("invalid service definition")
)

// base64Prefix marks TXT values carrying binary data.
const base64Prefix = "base64:"

// serviceTypeRe matches DNS-SD service types: "_name._tcp" or "_name._udp"
// (RFC 6763 Section 7).
var serviceTypeRe = regexp.MustCompile(`^_[A-Za-z0-9][A-Za-z0-9-]*\._(tcp|udp)$`)

// Service is one advertised DNS-SD service.
type Service struct {
	// Name identifies the definition: the file basename without the
	// .dnssd suffix, or the name given at registration time.
	Name string `mapstructure:"-" json:"name"`

	InstanceName string   `mapstructure:"instance_name" json:"instance_name"`
	Type         string   `mapstructure:"type" json:"type"`
	Port         uint16   `mapstructure:"port" json:"port"`
	Priority     uint16   `mapstructure:"priority" json:"priority"`
	Weight       uint16   `mapstructure:"weight" json:"weight"`
	TXT          []string `mapstructure:"txt" json:"txt,omitempty"`

	// The synthesized triple; rebuilt by UpdateRRs.
	ptrRR *dns.ResourceRecord
	srvRR *dns.ResourceRecord
	txtRR *dns.ResourceRecord
}

// Validate checks the definition the way the file loader does, so API
// registrations fail with the same messages.
func (s *Service) Validate() error {
	if s.InstanceName == "" {
		return fmt.Errorf("%w: %s doesn't define service instance name", ErrInvalidService, s.Name)
	}
	if s.Type == "" {
		return fmt.Errorf("%w: %s doesn't define service type", ErrInvalidService, s.Name)
	}
	if !serviceTypeRe.MatchString(s.Type) {
		return fmt.Errorf("%w: %s has malformed service type %q", ErrInvalidService, s.Name, s.Type)
	}
	if s.Port == 0 {
		return fmt.Errorf("%w: %s doesn't define a port", ErrInvalidService, s.Name)
	}
	if !dns.ValidName(s.InstanceName + "." + s.Type + ".local") {
		return fmt.Errorf("%w: %s instance name does not form a valid DNS name", ErrInvalidService, s.Name)
	}
	return nil
}

// ServiceName returns the service-enumeration name, e.g. "_ipp._tcp.local".
func (s *Service) ServiceName() string {
	return s.Type + ".local"
}

// InstancePath returns the full instance name,
// e.g. "My Printer._ipp._tcp.local".
func (s *Service) InstancePath() string {
	return s.InstanceName + "." + s.Type + ".local"
}

// UpdateRRs (re)synthesizes the PTR/SRV/TXT triple against the given
// hostname. Any previously built records are discarded; callers withdraw
// them from the zone first.
func (s *Service) UpdateRRs(hostname string) error {
	items, err := txtItems(s.TXT)
	if err != nil {
		return err
	}

	s.txtRR = dns.NewTXT(s.InstancePath(), items, dns.MDNSDefaultTTL)
	s.ptrRR = dns.NewPTR(s.ServiceName(), s.InstancePath(), dns.MDNSDefaultTTL)
	s.srvRR = dns.NewSRV(s.InstancePath(), s.Priority, s.Weight, s.Port, hostname, dns.MDNSDefaultTTL)
	return nil
}

// Records returns the current triple, nil before the first UpdateRRs.
func (s *Service) Records() []*dns.ResourceRecord {
	if s.ptrRR == nil {
		return nil
	}
	return []*dns.ResourceRecord{s.ptrRR, s.srvRR, s.txtRR}
}

// txtItems converts "key" / "key=value" entries into TXT items. Values with
// the base64: prefix are decoded to raw bytes. An empty entry list yields
// the single zero-length item required by RFC 6763 Section 6.1.
func txtItems(entries []string) (dns.TXTItems, error) {
	if len(entries) == 0 {
		return dns.EmptyTXT(), nil
	}
	items := make(dns.TXTItems, 0, len(entries))
	for _, e := range entries {
		key, value, found := strings.Cut(e, "=")
		if key == "" {
			return nil, fmt.Errorf("%w: empty TXT key in %q", ErrInvalidService, e)
		}
		if !found {
			items = append(items, []byte(key))
			continue
		}
		if strings.HasPrefix(value, base64Prefix) {
			raw, err := base64.StdEncoding.DecodeString(value[len(base64Prefix):])
			if err != nil {
				return nil, fmt.Errorf("%w: bad base64 TXT value in %q: %v", ErrInvalidService, e, err)
			}
			item := make([]byte, 0, len(key)+1+len(raw))
			item = append(item, key...)
			item = append(item, '=')
			item = append(item, raw...)
			items = append(items, item)
			continue
		}
		items = append(items, []byte(key+"="+value))
	}
	return items, nil
}
