package localinfo

import (
	"context"
	"net"
	"os"

	"github.com/frannie30/ip-add-identifier/internal/snapshot"
)

// probeAddr is only used to pick the outbound interface; connecting a UDP
// socket sends no packets.
const probeAddr = "8.8.8.8:80"

// Collect reports the hostname and the local address used for outbound
// traffic. Anything that cannot be determined is left unknown.
func Collect(ctx context.Context) snapshot.Local {
	local := snapshot.Local{LocalIPs: []string{}}

	if name, err := os.Hostname(); err == nil {
		local.Hostname = snapshot.String(name)
	}
	if ip := outboundIP(ctx); ip != "" {
		local.LocalIPs = append(local.LocalIPs, ip)
	}
	return local
}

func outboundIP(ctx context.Context) string {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", probeAddr)
	if err != nil {
		return ""
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil || addr.IP.IsUnspecified() {
		return ""
	}
	return addr.IP.String()
}
