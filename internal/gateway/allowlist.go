package gateway

import "net/netip"

// The gateway publishes the address ranges its notifications originate
// from and offers no request signature; origin membership is the whole
// trust boundary for this provider.
var trustedRanges = []string{
	"185.71.76.0/27",
	"185.71.77.0/27",
	"77.75.153.0/25",
	"77.75.156.11/32",
	"77.75.156.35/32",
	"77.75.154.128/25",
	"2a02:5180::/32",
}

type Allowlist struct {
	prefixes []netip.Prefix
}

func NewAllowlist() *Allowlist {
	return NewAllowlistFromRanges(trustedRanges)
}

func NewAllowlistFromRanges(ranges []string) *Allowlist {
	prefixes := make([]netip.Prefix, 0, len(ranges))
	for _, r := range ranges {
		p, err := netip.ParsePrefix(r)
		if err != nil {
			continue
		}
		prefixes = append(prefixes, p)
	}
	return &Allowlist{prefixes: prefixes}
}

// Contains reports whether addr falls inside any trusted range.
// Unparseable addresses are rejected.
func (a *Allowlist) Contains(addr string) bool {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	ip = ip.Unmap()

	for _, p := range a.prefixes {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}
