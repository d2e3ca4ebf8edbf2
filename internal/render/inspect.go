package render

import (
	"bytes"
	"fmt"
	"net"
	"strings"

	"github.com/JustAaronHere/NetWeaver/internal/netutil"
)

// Interfaces writes the host's interface inventory and default gateway.
func (r *Renderer) Interfaces(ifaces []netutil.Interface, gateway net.IP) error {
	var buf bytes.Buffer

	table := newTable(&buf)
	table.SetHeader([]string{"Name", "MAC", "Vendor", "MTU", "State", "Addresses"})
	for _, ifi := range ifaces {
		table.Append(r.interfaceRow(ifi))
	}
	table.Render()

	if gateway != nil {
		fmt.Fprintf(&buf, "\nDefault gateway: %s\n", r.paint(r.scheme.Accent, gateway.String()))
	}

	_, err := r.out.Write(buf.Bytes())
	return err
}

// interfaceRow formats one interface.
func (r *Renderer) interfaceRow(ifi netutil.Interface) []string {
	mac := "-"
	vendor := "-"
	if len(ifi.MAC) > 0 {
		mac = ifi.MAC.String()
		vendor = netutil.VendorForMAC(ifi.MAC)
	}

	state := r.paint(r.scheme.Crit, "down")
	if ifi.Up {
		state = r.paint(r.scheme.Good, "up")
	}
	if ifi.Loopback {
		state += " (loopback)"
	}

	addrs := "-"
	if len(ifi.Addrs) > 0 {
		addrs = strings.Join(ifi.Addrs, ", ")
	}

	return []string{
		ifi.Name,
		mac,
		truncateString(vendor, 20),
		fmt.Sprintf("%d", ifi.MTU),
		state,
		truncateString(addrs, 45),
	}
}
