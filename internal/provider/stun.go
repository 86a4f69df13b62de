package provider

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/pion/stun/v3"
)

// STUNProvider learns the public mapped address from a STUN Binding request.
// The mapped address belongs to the UDP socket used for the probe, so it
// ranks below the HTTP echo services.
type STUNProvider struct {
	server string
}

func NewSTUNProvider(server string) *STUNProvider {
	return &STUNProvider{server: strings.TrimSpace(server)}
}

func (p *STUNProvider) Name() string { return "stun:" + strings.TrimPrefix(p.server, "stun:") }

func (p *STUNProvider) Role() Role { return RoleAddress }

func (p *STUNProvider) Fetch(ctx context.Context) (Fragment, error) {
	mapped, err := p.probe(ctx)
	if err != nil {
		return Fragment{}, err
	}
	addr, err := parseAddr(mapped, FamilyAny)
	if err != nil {
		return Fragment{}, fail(p.Name(), ErrMalformed, err)
	}
	return Fragment{Addresses: addressesFor(addr)}, nil
}

func (p *STUNProvider) probe(ctx context.Context) (string, error) {
	if p.server == "" {
		return "", fail(p.Name(), ErrUnreachable, fmt.Errorf("empty STUN server"))
	}
	uriStr := p.server
	if !strings.HasPrefix(uriStr, "stun:") {
		uriStr = "stun:" + uriStr
	}

	uri, err := stun.ParseURI(uriStr)
	if err != nil {
		return "", fail(p.Name(), ErrUnreachable, err)
	}

	client, err := stun.DialURI(uri, &stun.DialConfig{})
	if err != nil {
		return "", fail(p.Name(), ErrUnreachable, err)
	}
	defer client.Close()

	msg := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	result := make(chan netip.Addr, 1)
	failed := make(chan error, 1)

	go func() {
		err := client.Do(msg, func(res stun.Event) {
			if res.Error != nil {
				failed <- fail(p.Name(), ErrUnreachable, res.Error)
				return
			}
			var xor stun.XORMappedAddress
			if err := xor.GetFrom(res.Message); err != nil {
				failed <- fail(p.Name(), ErrMalformed, err)
				return
			}
			addr, ok := netip.AddrFromSlice(xor.IP)
			if !ok {
				failed <- malformed(p.Name(), "invalid mapped address %v", xor.IP)
				return
			}
			result <- addr.Unmap()
		})
		if err != nil {
			select {
			case failed <- fail(p.Name(), ErrUnreachable, err):
			default:
			}
		}
	}()

	select {
	case addr := <-result:
		return addr.String(), nil
	case err := <-failed:
		return "", err
	case <-ctx.Done():
		return "", fail(p.Name(), ErrTimeout, ctx.Err())
	}
}
