package snapshot

import "time"

// NotAvailable is the display sentinel for unknown values.
const NotAvailable = "Not available"

// Snapshot is one canonical, timestamped aggregation result.
// Pointer fields are nil when no provider supplied the value.
type Snapshot struct {
	Timestamp   time.Time   `json:"timestamp" yaml:"timestamp"`
	Addresses   Addresses   `json:"addresses" yaml:"addresses"`
	Geolocation Geolocation `json:"geolocation" yaml:"geolocation"`
	Network     Network     `json:"network" yaml:"network"`
	Security    Security    `json:"security" yaml:"security"`
	Local       Local       `json:"local" yaml:"local"`
}

type Addresses struct {
	IPv4 *string `json:"ipv4" yaml:"ipv4"`
	IPv6 *string `json:"ipv6" yaml:"ipv6"`
}

type Geolocation struct {
	City        *string  `json:"city" yaml:"city"`
	Region      *string  `json:"region" yaml:"region"`
	Country     *string  `json:"country" yaml:"country"`
	CountryCode *string  `json:"country_code" yaml:"country_code"`
	PostalCode  *string  `json:"postal_code" yaml:"postal_code"`
	Latitude    *float64 `json:"latitude" yaml:"latitude"`
	Longitude   *float64 `json:"longitude" yaml:"longitude"`
	Timezone    *string  `json:"timezone" yaml:"timezone"`
}

type Network struct {
	ISP           *string `json:"isp" yaml:"isp"`
	Organization  *string `json:"organization" yaml:"organization"`
	ASNumber      *string `json:"as_number" yaml:"as_number"`
	ASDescription *string `json:"as_description" yaml:"as_description"`
}

// Security flags are tri-state: nil means the source did not report the flag.
type Security struct {
	IsMobile  *bool `json:"is_mobile" yaml:"is_mobile"`
	IsProxy   *bool `json:"is_proxy" yaml:"is_proxy"`
	IsHosting *bool `json:"is_hosting" yaml:"is_hosting"`
}

type Local struct {
	Hostname *string  `json:"hostname" yaml:"hostname"`
	LocalIPs []string `json:"local_ips" yaml:"local_ips"`
}

// Empty reports whether no field of the group is known.
func (g Geolocation) Empty() bool {
	return g.City == nil && g.Region == nil && g.Country == nil && g.CountryCode == nil &&
		g.PostalCode == nil && g.Latitude == nil && g.Longitude == nil && g.Timezone == nil
}

func (n Network) Empty() bool {
	return n.ISP == nil && n.Organization == nil && n.ASNumber == nil && n.ASDescription == nil
}

func (a Addresses) Empty() bool {
	return a.IPv4 == nil && a.IPv6 == nil
}
