package geo

import (
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ParseIP interprets value as an IPv4 address.  value is either a decimal
// number, where a fractional part is truncated, or a dotted-quad address.
func ParseIP(value string) (ip uint32, err error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, fmt.Errorf("empty value: %w", ErrInvalidIP)
	}

	if strings.Count(s, ".") == 3 {
		addr, perr := netip.ParseAddr(s)
		if perr != nil || !addr.Is4() {
			return 0, fmt.Errorf("bad dotted address: %w", ErrInvalidIP)
		}

		b := addr.As4()

		return binary.BigEndian.Uint32(b[:]), nil
	}

	if u, perr := strconv.ParseUint(s, 10, 32); perr == nil {
		return uint32(u), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %w", ErrInvalidIP)
	}

	switch {
	case math.IsNaN(f), math.IsInf(f, 0):
		return 0, fmt.Errorf("not a finite number: %w", ErrInvalidIP)
	case f < 0:
		return 0, fmt.Errorf("negative: %w", ErrInvalidIP)
	case f > math.MaxUint32:
		return 0, fmt.Errorf("out of 32-bit range: %w", ErrInvalidIP)
	}

	return uint32(f), nil
}

// FormatIP returns the dotted-quad form of ip.
func FormatIP(ip uint32) (s string) {
	return uint32ToNetIP(ip).String()
}

func uint32ToNetIP(ip uint32) (netIP net.IP) {
	netIP = make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(netIP, ip)

	return netIP
}

// IPText is an address value decoded from either a JSON string or a JSON
// number, since datasets often store addresses as numbers.  It is not
// validated during decoding; use [ParseIP].
type IPText string

// type check
var _ json.Unmarshaler = (*IPText)(nil)

// UnmarshalJSON implements the [json.Unmarshaler] interface for *IPText.
func (t *IPText) UnmarshalJSON(b []byte) (err error) {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err = json.Unmarshal(b, &s); err != nil {
			return err
		}

		*t = IPText(s)

		return nil
	}

	if string(b) == "null" {
		return nil
	}

	*t = IPText(b)

	return nil
}
