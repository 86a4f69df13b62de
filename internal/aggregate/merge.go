package aggregate

import (
	"fmt"
	"strings"

	"github.com/frannie30/ip-add-identifier/internal/provider"
	"github.com/frannie30/ip-add-identifier/internal/security"
	"github.com/frannie30/ip-add-identifier/internal/snapshot"
)

// merge builds a Snapshot from completed results using fixed priority:
// provider order decides, arrival order never does.
func merge(providers []provider.Provider, results []result, policy Policy) snapshot.Snapshot {
	var s snapshot.Snapshot

	// Each family is taken from the first address provider that reported it.
	for i, p := range providers {
		r := results[i]
		if p.Role() != provider.RoleAddress || r.err != nil || r.frag.Addresses == nil {
			continue
		}
		if s.Addresses.IPv4 == nil && r.frag.Addresses.IPv4 != nil {
			s.Addresses.IPv4 = r.frag.Addresses.IPv4
		}
		if s.Addresses.IPv6 == nil && r.frag.Addresses.IPv6 != nil {
			s.Addresses.IPv6 = r.frag.Addresses.IPv6
		}
	}

	// Geolocation, network and security come from one source as a unit so
	// fields of different providers are never mixed.
	source := firstSuccess(providers, results, provider.RoleGeo)
	if source < 0 && policy.SecondaryFallback {
		source = firstSuccess(providers, results, provider.RoleSecondary)
	}
	if source >= 0 {
		f := results[source].frag
		if f.Geolocation != nil {
			s.Geolocation = *f.Geolocation
		}
		if f.Network != nil {
			s.Network = *f.Network
		}
		s.Security = security.Infer(f.Flags)
	}

	return s
}

func firstSuccess(providers []provider.Provider, results []result, role provider.Role) int {
	for i, p := range providers {
		if p.Role() == role && results[i].err == nil {
			return i
		}
	}
	return -1
}

// corroborate compares secondary fragments with the merged Snapshot and
// describes disagreements. It never changes the Snapshot.
func corroborate(providers []provider.Provider, results []result, s snapshot.Snapshot) []string {
	var out []string
	for i, p := range providers {
		r := results[i]
		if p.Role() != provider.RoleSecondary || r.err != nil {
			continue
		}
		if g := r.frag.Geolocation; g != nil {
			if d := disagree("country_code", s.Geolocation.CountryCode, g.CountryCode); d != "" {
				out = append(out, p.Name()+": "+d)
			}
			if d := disagree("city", s.Geolocation.City, g.City); d != "" {
				out = append(out, p.Name()+": "+d)
			}
		}
		if a := r.frag.Addresses; a != nil {
			if d := disagree("ipv4", s.Addresses.IPv4, a.IPv4); d != "" {
				out = append(out, p.Name()+": "+d)
			}
			if d := disagree("ipv6", s.Addresses.IPv6, a.IPv6); d != "" {
				out = append(out, p.Name()+": "+d)
			}
		}
	}
	return out
}

func disagree(field string, have, other *string) string {
	if have == nil || other == nil {
		return ""
	}
	if strings.EqualFold(*have, *other) {
		return ""
	}
	return fmt.Sprintf("%s %q differs from %q", field, *other, *have)
}
