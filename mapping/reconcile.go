package mapping

import (
	"os"

	"github.com/aalemi-dev/apmbridge/apm"
)

var hostnameKeys = map[string]struct{}{
	"server.address":   {},
	"net.peer.name":    {},
	"net.host.name":    {},
	"host.name":        {},
	"peer.hostname":    {},
	"db.instance.host": {},
}

var localhostAliases = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
	"::1":       {},
	"[::1]":     {},
	"0.0.0.0":   {},
}

// IsLocalhost reports whether host names the local machine.
func IsLocalhost(host string) bool {
	_, ok := localhostAliases[host]
	return ok
}

// Reconciler copies the span attributes no rule consumed onto the segment.
type Reconciler struct {
	hostname string
}

// NewReconciler returns a reconciler that rewrites localhost aliases to hostname. An
// empty hostname falls back to the OS hostname.
func NewReconciler(hostname string) *Reconciler {
	if hostname == "" {
		if h, err := os.Hostname(); err == nil {
			hostname = h
		}
	}
	return &Reconciler{hostname: hostname}
}

// Hostname is the name substituted for localhost aliases.
func (r *Reconciler) Hostname() string {
	return r.hostname
}

// Reconcile adds every attribute of attrs not in consumed to seg. Hostname attributes
// pointing at localhost are rewritten to the local hostname. Copied keys are added to
// consumed.
func (r *Reconciler) Reconcile(attrs Attributes, consumed KeySet, seg *apm.Segment) {
	if seg == nil {
		return
	}
	for k, v := range attrs {
		if consumed.Has(k) {
			continue
		}
		if _, isHost := hostnameKeys[k]; isHost && r.hostname != "" {
			if s, ok := v.(string); ok && IsLocalhost(s) {
				v = r.hostname
			}
		}
		seg.AddAttribute(k, v)
		consumed.Add(k)
	}
}
