package ipaddresses

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

const errInvalidIPAddrFmt = "invalid IP address: %s"
const errInvalidCIDRFmt = "invalid CIDR Notation: %s"

// Normalize converts an address into the form used for reputation list lookups.
// IPv6 addresses are compressed to their canonical short form so that equivalent textual
// representations compare equal. Anything else, including IPv4 and unparsable input, is returned as-is.
func Normalize(addr string) string {
	addr = strings.TrimSpace(addr)
	if !strings.Contains(addr, ":") {
		return addr
	}

	ip, err := netip.ParseAddr(addr)
	if err != nil || !ip.Is6() {
		return addr
	}

	return ip.String()
}

// BaseAddress reduces a list entry such as "10.0.0.0/8" to its network address component and normalizes it.
func BaseAddress(entry string) string {
	entry = strings.TrimSpace(entry)
	if i := strings.IndexByte(entry, '/'); i >= 0 {
		entry = entry[:i]
	}
	return Normalize(entry)
}

// ParsePrefix parses a list entry into a prefix. Entries without a mask are treated as single hosts.
func ParsePrefix(entry string) (prefix netip.Prefix, err error) {
	entry = strings.TrimSpace(entry)

	addrPart, bitsPart, hasMask := strings.Cut(entry, "/")
	ip, err := netip.ParseAddr(addrPart)
	if err != nil {
		err = fmt.Errorf(errInvalidIPAddrFmt, entry)
		return
	}
	ip = ip.Unmap()

	bits := ip.BitLen()
	if hasMask {
		bits, err = strconv.Atoi(bitsPart)
		if err != nil || bits < 0 || bits > ip.BitLen() {
			err = fmt.Errorf(errInvalidCIDRFmt, entry)
			return
		}
	}

	prefix = netip.PrefixFrom(ip, bits).Masked()
	return
}

// StripPort removes a trailing port from a transport level peer address such as "1.2.3.4:5678" or "[::1]:80".
func StripPort(addr string) string {
	addr = strings.TrimSpace(addr)
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.Trim(addr, "[]")
	}
	return host
}

// FirstListItem returns the first element of a comma separated header value such as X-Forwarded-For.
func FirstListItem(value string) string {
	if i := strings.IndexByte(value, ','); i >= 0 {
		value = value[:i]
	}
	return strings.TrimSpace(value)
}

// IsAddress reports whether s is a single IPv4 or IPv6 address.
func IsAddress(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

// InAddressSpace checks if an IP address is part of the address space defined by a CIDR notation
func InAddressSpace(ipAddr string, cidr string) (result bool, err error) {
	ip, err := netip.ParseAddr(strings.TrimSpace(ipAddr))
	if err != nil {
		err = fmt.Errorf(errInvalidIPAddrFmt, ipAddr)
		return
	}

	prefix, err := ParsePrefix(cidr)
	if err != nil {
		return
	}

	result = prefix.Contains(ip.Unmap())
	return
}
