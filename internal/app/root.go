package app

import (
	"github.com/spf13/cobra"
)

var (
	dataDir      string
	storeBackend string

	// RootCmd is the root command for ip-identifier
	RootCmd = &cobra.Command{
		Use:   "ip-identifier",
		Short: "Public IP identity lookup with saved snapshots",
		Long: `ip-identifier queries several public IP, STUN and geolocation services in
parallel and merges what they report into a single snapshot: public IPv4/IPv6
addresses, location, network operator and mobile/proxy/hosting flags.

Snapshots can be saved and later listed, inspected or deleted, either from the
command line or through the HTTP API started by 'serve'.

Configuration is read from the environment (and a .env file if present):
  PORT, DATA_DIR, STORE_BACKEND, PROVIDER_TIMEOUT, REQUEST_TIMEOUT,
  STUN_SERVERS, GEO_FALLBACK, IPINFO_TOKEN`,
		Example: `  # Show the current identity
  ip-identifier fetch

  # Print as YAML and save it
  ip-identifier fetch --output yaml --save --title "office"

  # Start the HTTP API
  ip-identifier serve

  # List saved snapshots
  ip-identifier entries list`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for saved entries (overrides DATA_DIR)")
	RootCmd.PersistentFlags().StringVar(&storeBackend, "store", "", "entry store: file, sqlite or memory (overrides STORE_BACKEND)")

	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}
