package provider

// Options selects and parameterises the default provider set.
type Options struct {
	STUNServers []string
	IPInfoToken string
}

// Defaults returns the production providers in merge-priority order.
// Address echo services come first (IPv4 services in the order they are
// trusted, then IPv6), followed by STUN, the primary geo source and the
// secondary source.
func Defaults(opt Options) []Provider {
	providers := []Provider{
		NewEchoProvider("ipify", "https://api.ipify.org", FamilyIPv4),
		NewEchoProvider("icanhazip", "https://ipv4.icanhazip.com", FamilyIPv4),
		NewEchoProvider("checkip.amazonaws.com", "https://checkip.amazonaws.com", FamilyIPv4),
		NewEchoProvider("my-ip.io", "https://api.my-ip.io/ip", FamilyIPv4),
		NewEchoProvider("ipify6", "https://api6.ipify.org", FamilyIPv6),
	}
	for _, server := range opt.STUNServers {
		if server == "" {
			continue
		}
		providers = append(providers, NewSTUNProvider(server))
	}
	providers = append(providers,
		NewIPAPIProvider(""),
		NewIPInfoProvider("", opt.IPInfoToken),
	)
	return providers
}
