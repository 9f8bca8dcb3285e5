package hostfuncs

import "net"

// privateRanges lists the address blocks the fetch host function
// refuses to connect to, whatever the component's network policy
// allows, closing the classic SSRF path through cloud metadata
// endpoints and internal services.
var privateRanges = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16", // link-local, includes the AWS/GCP metadata address
	"::1/128",
	"fc00::/7",
	"fe80::/10",
	"224.0.0.0/4",
	"ff00::/8",
}

// IsPrivateOrReservedIP reports whether ip falls in a private,
// loopback, link-local, or multicast range.
func IsPrivateOrReservedIP(ip net.IP) bool {
	for _, cidr := range privateRanges {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
