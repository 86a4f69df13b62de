package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/frannie30/ip-add-identifier/internal/snapshot"
)

const ipapiURL = "http://ip-api.com/json/?fields=status,message,country,countryCode,region,regionName,city,zip,lat,lon,timezone,isp,org,as,mobile,proxy,hosting,query"

// ipapiResponse is the raw response from ip-api.com.
type ipapiResponse struct {
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	Query       string   `json:"query"`
	Country     string   `json:"country"`
	CountryCode string   `json:"countryCode"`
	Region      string   `json:"region"`
	RegionName  string   `json:"regionName"`
	City        string   `json:"city"`
	Zip         string   `json:"zip"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	Timezone    string   `json:"timezone"`
	ISP         string   `json:"isp"`
	Org         string   `json:"org"`
	AS          string   `json:"as"`
	Mobile      any      `json:"mobile"`
	Proxy       any      `json:"proxy"`
	Hosting     any      `json:"hosting"`
}

// IPAPIProvider is the primary geolocation/network source (ip-api.com).
type IPAPIProvider struct {
	url        string
	httpClient *http.Client
}

func NewIPAPIProvider(url string) *IPAPIProvider {
	if url == "" {
		url = ipapiURL
	}
	return &IPAPIProvider{
		url:        url,
		httpClient: NewHTTPClient(FamilyAny),
	}
}

func (p *IPAPIProvider) WithClient(c *http.Client) *IPAPIProvider {
	p.httpClient = c
	return p
}

func (p *IPAPIProvider) Name() string { return "ip-api.com" }

func (p *IPAPIProvider) Role() Role { return RoleGeo }

// Fetch looks up the caller's own address.
func (p *IPAPIProvider) Fetch(ctx context.Context) (Fragment, error) {
	body, err := get(ctx, p.Name(), p.httpClient, p.url, nil)
	if err != nil {
		return Fragment{}, err
	}

	var resp ipapiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Fragment{}, fail(p.Name(), ErrMalformed, err)
	}
	if resp.Status != "success" {
		msg := resp.Message
		if msg == "" {
			msg = "missing success status"
		}
		return Fragment{}, malformed(p.Name(), "status %q: %s", resp.Status, msg)
	}

	f := convertIPAPI(resp)
	if f.Geolocation == nil && f.Network == nil {
		return Fragment{}, malformed(p.Name(), "no usable fields")
	}
	return f, nil
}

func convertIPAPI(r ipapiResponse) Fragment {
	geo := &snapshot.Geolocation{
		City:        snapshot.String(r.City),
		Region:      snapshot.String(r.RegionName),
		Country:     snapshot.String(r.Country),
		CountryCode: snapshot.String(r.CountryCode),
		PostalCode:  snapshot.String(r.Zip),
		Latitude:    r.Lat,
		Longitude:   r.Lon,
		Timezone:    snapshot.String(r.Timezone),
	}

	// "as" looks like "AS15169 Google LLC".
	number, _ := splitAS(r.AS)
	network := &snapshot.Network{
		ISP:           snapshot.String(r.ISP),
		Organization:  snapshot.String(r.Org),
		ASNumber:      snapshot.String(number),
		ASDescription: snapshot.String(r.AS),
	}

	f := Fragment{
		Geolocation: geo,
		Network:     network,
		Flags:       map[string]any{},
	}
	if geo.Empty() {
		f.Geolocation = nil
	}
	if network.Empty() {
		f.Network = nil
	}

	for key, v := range map[string]any{"mobile": r.Mobile, "proxy": r.Proxy, "hosting": r.Hosting} {
		if v != nil {
			f.Flags[key] = v
		}
	}

	if addr, err := parseAddr(r.Query, FamilyAny); err == nil {
		f.Addresses = addressesFor(addr)
	}
	return f
}

// splitAS separates the leading "AS<n>" token from the organisation name.
func splitAS(as string) (number, name string) {
	as = strings.TrimSpace(as)
	if as == "" {
		return "", ""
	}
	number, name, _ = strings.Cut(as, " ")
	return number, strings.TrimSpace(name)
}
