package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/frannie30/ip-add-identifier/internal/snapshot"
)

// Role is the capability a provider is trusted for during the merge.
type Role int

const (
	// RoleAddress providers are authoritative for public addresses.
	RoleAddress Role = iota
	// RoleGeo providers are authoritative for geolocation, network and security.
	RoleGeo
	// RoleSecondary providers corroborate; they are only promoted when the
	// merge policy designates them as fallback.
	RoleSecondary
)

func (r Role) String() string {
	switch r {
	case RoleAddress:
		return "address"
	case RoleGeo:
		return "geo"
	case RoleSecondary:
		return "secondary"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Provider queries one external data source.
// Fetch issues a single request and never retries.
type Provider interface {
	Name() string
	Role() Role
	Fetch(ctx context.Context) (Fragment, error)
}

// Fragment is the subset of Snapshot fields one provider call supplied.
type Fragment struct {
	Addresses   *snapshot.Addresses
	Geolocation *snapshot.Geolocation
	Network     *snapshot.Network
	// Flags holds the raw security flags as reported (mobile, proxy, hosting).
	Flags map[string]any
}

// Failure kinds.
var (
	ErrTimeout     = errors.New("provider timeout")
	ErrUnreachable = errors.New("provider unreachable")
	ErrMalformed   = errors.New("provider response malformed")
	ErrStatus      = errors.New("provider returned non-success status")
)

// Error is a typed provider failure. errors.Is matches both the Kind
// sentinel and the underlying cause.
type Error struct {
	Provider string
	Kind     error
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func fail(name string, kind, err error) *Error {
	return &Error{Provider: name, Kind: kind, Err: err}
}

func malformed(name, format string, args ...any) *Error {
	return fail(name, ErrMalformed, fmt.Errorf(format, args...))
}
