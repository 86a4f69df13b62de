package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/frannie30/ip-add-identifier/internal/snapshot"
)

// EchoProvider asks an "what is my IP" service for the caller's address.
// Both plain-text bodies and {"ip": "..."} JSON are accepted.
type EchoProvider struct {
	name   string
	url    string
	family Family
	client *http.Client
}

func NewEchoProvider(name, url string, family Family) *EchoProvider {
	return &EchoProvider{
		name:   name,
		url:    url,
		family: family,
		client: NewHTTPClient(family),
	}
}

// WithClient replaces the HTTP client (tests point it at httptest servers).
func (p *EchoProvider) WithClient(c *http.Client) *EchoProvider {
	p.client = c
	return p
}

func (p *EchoProvider) Name() string { return p.name }

func (p *EchoProvider) Role() Role { return RoleAddress }

func (p *EchoProvider) Fetch(ctx context.Context) (Fragment, error) {
	body, err := get(ctx, p.name, p.client, p.url, nil)
	if err != nil {
		return Fragment{}, err
	}

	raw := string(body)
	if strings.HasPrefix(raw, "{") {
		var parsed struct {
			IP string `json:"ip"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return Fragment{}, fail(p.name, ErrMalformed, err)
		}
		raw = parsed.IP
	}

	addr, err := parseAddr(raw, p.family)
	if err != nil {
		return Fragment{}, fail(p.name, ErrMalformed, err)
	}
	return Fragment{Addresses: addressesFor(addr)}, nil
}

// parseAddr validates s as an IP literal of the requested family.
func parseAddr(s string, family Family) (netip.Addr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, fmt.Errorf("empty ip")
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid ip %q: %w", s, err)
	}
	addr = addr.Unmap()

	switch family {
	case FamilyIPv4:
		if !addr.Is4() {
			return netip.Addr{}, fmt.Errorf("%s is not an IPv4 address", addr)
		}
	case FamilyIPv6:
		if !addr.Is6() {
			return netip.Addr{}, fmt.Errorf("%s is not an IPv6 address", addr)
		}
	}
	return addr, nil
}

func addressesFor(addr netip.Addr) *snapshot.Addresses {
	s := addr.String()
	if addr.Is4() {
		return &snapshot.Addresses{IPv4: &s}
	}
	return &snapshot.Addresses{IPv6: &s}
}
