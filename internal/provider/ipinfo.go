package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/frannie30/ip-add-identifier/internal/snapshot"
)

const ipinfoURL = "https://ipinfo.io/json"

// ipinfoResponse is the response from ipinfo.io's /json endpoint.
type ipinfoResponse struct {
	IP       string          `json:"ip"`
	Hostname string          `json:"hostname"`
	City     string          `json:"city"`
	Region   string          `json:"region"`
	Country  string          `json:"country"`
	Loc      string          `json:"loc"`
	Org      string          `json:"org"`
	Postal   string          `json:"postal"`
	Timezone string          `json:"timezone"`
	Bogon    bool            `json:"bogon"`
	Error    json.RawMessage `json:"error"`
}

// IPInfoProvider is the secondary source used to corroborate the primary one.
type IPInfoProvider struct {
	url        string
	token      string
	httpClient *http.Client
}

func NewIPInfoProvider(url, token string) *IPInfoProvider {
	if url == "" {
		url = ipinfoURL
	}
	return &IPInfoProvider{
		url:        url,
		token:      token,
		httpClient: NewHTTPClient(FamilyAny),
	}
}

func (p *IPInfoProvider) WithClient(c *http.Client) *IPInfoProvider {
	p.httpClient = c
	return p
}

func (p *IPInfoProvider) Name() string { return "ipinfo.io" }

func (p *IPInfoProvider) Role() Role { return RoleSecondary }

func (p *IPInfoProvider) Fetch(ctx context.Context) (Fragment, error) {
	header := http.Header{"Accept": []string{"application/json"}}
	if p.token != "" {
		header.Set("Authorization", "Bearer "+p.token)
	}

	body, err := get(ctx, p.Name(), p.httpClient, p.url, header)
	if err != nil {
		return Fragment{}, err
	}

	var resp ipinfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Fragment{}, fail(p.Name(), ErrMalformed, err)
	}
	if len(resp.Error) > 0 && string(resp.Error) != "null" {
		return Fragment{}, malformed(p.Name(), "error response: %s", resp.Error)
	}
	if resp.Bogon {
		return Fragment{}, malformed(p.Name(), "bogon address %s", resp.IP)
	}

	f := convertIPInfo(resp)
	if f.Addresses == nil && f.Geolocation == nil && f.Network == nil {
		return Fragment{}, malformed(p.Name(), "no usable fields")
	}
	return f, nil
}

func convertIPInfo(r ipinfoResponse) Fragment {
	geo := &snapshot.Geolocation{
		City:        snapshot.String(r.City),
		Region:      snapshot.String(r.Region),
		CountryCode: snapshot.String(r.Country),
		PostalCode:  snapshot.String(r.Postal),
		Timezone:    snapshot.String(r.Timezone),
	}
	if lat, lon, ok := parseLoc(r.Loc); ok {
		geo.Latitude = &lat
		geo.Longitude = &lon
	}

	// org looks like "AS15169 Google LLC".
	number, name := splitAS(r.Org)
	network := &snapshot.Network{}
	if strings.HasPrefix(strings.ToUpper(number), "AS") {
		network.ASNumber = snapshot.String(number)
		network.ASDescription = snapshot.String(r.Org)
		network.Organization = snapshot.String(name)
	} else {
		network.Organization = snapshot.String(r.Org)
	}

	var f Fragment
	if !geo.Empty() {
		f.Geolocation = geo
	}
	if !network.Empty() {
		f.Network = network
	}
	if addr, err := parseAddr(r.IP, FamilyAny); err == nil {
		f.Addresses = addressesFor(addr)
	}
	return f
}

// parseLoc parses "lat,lon".
func parseLoc(loc string) (float64, float64, bool) {
	latStr, lonStr, ok := strings.Cut(strings.TrimSpace(loc), ",")
	if !ok {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
