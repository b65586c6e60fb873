package address

import (
	"errors"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the port game servers listen on when none is given.
const DefaultPort = 11753

// ErrEmptyAddress is returned when an address has no host part
var ErrEmptyAddress = errors.New("address is empty")

// Parser normalizes free-form server addresses
type Parser struct {
	// DefaultPort is substituted whenever the port is missing or malformed.
	DefaultPort int
}

// NewParser creates a parser falling back to defaultPort. A non-positive
// value selects DefaultPort.
func NewParser(defaultPort int) Parser {
	if defaultPort <= 0 {
		defaultPort = DefaultPort
	}
	return Parser{DefaultPort: defaultPort}
}

// Parse splits raw into host and port. The rules are applied in order:
//
//   - "[v6]" or "[v6]:port": the host is the text between the brackets.
//   - "host:port" where the text contains a '.': the host is everything
//     before the last ':' and the port is everything after it.
//   - anything else (including bare IPv6 literals) is a host on the
//     default port.
//
// A port that is not a decimal number in 1..65535 is replaced by the
// default port.
func (p Parser) Parse(raw string) (string, int) {
	s := strings.TrimSpace(raw)

	open := strings.IndexByte(s, '[')
	end := strings.IndexByte(s, ']')
	if open >= 0 && end > open {
		host := s[open+1 : end]
		rest := s[end+1:]
		if strings.HasPrefix(rest, ":") {
			return host, p.port(rest[1:])
		}
		return host, p.DefaultPort
	}

	colon := strings.LastIndexByte(s, ':')
	if colon >= 0 && (strings.IndexByte(s, '.') >= 0 || end >= 0) {
		return s[:colon], p.port(s[colon+1:])
	}

	return s, p.DefaultPort
}

// Canonical returns the registry key for raw: "host:port" or "[v6]:port".
// An empty host yields an empty string.
func (p Parser) Canonical(raw string) string {
	host, port := p.Parse(raw)
	if host == "" {
		return ""
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Validate reports whether raw has a usable host part.
func (p Parser) Validate(raw string) error {
	if host, _ := p.Parse(raw); host == "" {
		return ErrEmptyAddress
	}
	return nil
}

func (p Parser) port(text string) int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > 65535 {
		return p.DefaultPort
	}
	return n
}
