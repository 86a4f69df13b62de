package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/frannie30/ip-add-identifier/internal/entries"
	"github.com/frannie30/ip-add-identifier/internal/snapshot"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ValidFormat reports whether format is supported.
func ValidFormat(format string) bool {
	switch format {
	case FormatJSON, FormatYAML, FormatText:
		return true
	}
	return false
}

// WriteJSON encodes v, indented when w is a terminal and compact otherwise.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if IsTTY(w) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// WriteSnapshot renders a Snapshot in the requested format.
func WriteSnapshot(w io.Writer, format string, s *snapshot.Snapshot) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, s)
	case FormatYAML:
		return WriteYAML(w, s)
	case FormatText:
		return writeSnapshotText(w, s)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeSnapshotText(w io.Writer, s *snapshot.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	row := func(label, value string) {
		fmt.Fprintf(tw, "%s\t%s\n", label, value)
	}
	section := func(name string) {
		fmt.Fprintf(tw, "\n%s\t\n", strings.ToUpper(name))
	}

	row("Timestamp", s.Timestamp.UTC().Format(time.RFC3339))

	section("addresses")
	row("IPv4", snapshot.Display(s.Addresses.IPv4))
	row("IPv6", snapshot.Display(s.Addresses.IPv6))

	section("geolocation")
	g := s.Geolocation
	row("City", snapshot.Display(g.City))
	row("Region", snapshot.Display(g.Region))
	row("Country", snapshot.Display(g.Country))
	row("Country code", snapshot.Display(g.CountryCode))
	row("Postal code", snapshot.Display(g.PostalCode))
	row("Coordinates", snapshot.DisplayFloat(g.Latitude)+", "+snapshot.DisplayFloat(g.Longitude))
	row("Timezone", snapshot.Display(g.Timezone))

	section("network")
	n := s.Network
	row("ISP", snapshot.Display(n.ISP))
	row("Organization", snapshot.Display(n.Organization))
	row("AS number", snapshot.Display(n.ASNumber))
	row("AS description", snapshot.Display(n.ASDescription))

	section("security")
	row("Mobile", snapshot.DisplayBool(s.Security.IsMobile))
	row("Proxy", snapshot.DisplayBool(s.Security.IsProxy))
	row("Hosting", snapshot.DisplayBool(s.Security.IsHosting))

	section("local")
	row("Hostname", snapshot.Display(s.Local.Hostname))
	ips := snapshot.NotAvailable
	if len(s.Local.LocalIPs) > 0 {
		ips = strings.Join(s.Local.LocalIPs, ", ")
	}
	row("Local IPs", ips)

	return tw.Flush()
}

// WriteSummaries renders the saved-entry listing.
func WriteSummaries(w io.Writer, format string, list []entries.Summary) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, map[string]any{"entries": list})
	case FormatYAML:
		return WriteYAML(w, map[string]any{"entries": list})
	case FormatText:
		if len(list) == 0 {
			_, err := fmt.Fprintln(w, "no saved entries")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tCREATED")
		for _, e := range list {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", e.ID, e.Title, e.CreatedAt.UTC().Format(time.RFC3339))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
