// Package host tracks the hostname the daemon advertises on the link and
// rotates to a fresh candidate when the name loses an mDNS tie-break
// (RFC 6762 Section 9).
package host

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/herald-dns/herald/internal/dns"
)

// Host holds the advertised hostname. The zone consults it through the
// zone.Host interface when a withdrawn record carries our own name; the
// registered callback then re-synthesizes and re-registers dependent
// records under the new name.
type Host struct {
	logger *slog.Logger

	base    string // configured or system hostname, single label
	attempt int    // 0 = base name, n>0 = "<base>-<n+1>"

	onChange func(hostname string)
}

// New creates a Host from the configured name, falling back to the system
// hostname, falling back to "linux" the way resolved does.
func New(configured string, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	base := strings.TrimSuffix(configured, ".local")
	if base == "" {
		if sys, err := os.Hostname(); err == nil {
			base, _, _ = strings.Cut(sys, ".")
		}
	}
	if base == "" {
		base = "linux"
	}
	return &Host{logger: logger, base: strings.ToLower(base)}
}

// OnChange registers the callback fired after every hostname rotation.
func (h *Host) OnChange(fn func(hostname string)) {
	h.onChange = fn
}

// Current returns the currently advertised mDNS hostname, ".local" included.
func (h *Host) Current() string {
	if h.attempt == 0 {
		return h.base + ".local"
	}
	return fmt.Sprintf("%s-%d.local", h.base, h.attempt+1)
}

// IsOwnHostname reports whether name is the current hostname under DNS-name
// equality.
func (h *Host) IsOwnHostname(name string) bool {
	return dns.NameEqual(name, h.Current())
}

// NextHostname rotates to the next candidate ("foo.local" -> "foo-2.local"
// -> "foo-3.local" ...) and notifies the registered callback.
func (h *Host) NextHostname() {
	old := h.Current()
	h.attempt++
	h.logger.Info("hostname conflict, advertising new hostname",
		"old", old, "new", h.Current())
	if h.onChange != nil {
		h.onChange(h.Current())
	}
}
