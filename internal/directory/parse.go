package directory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"strconv"

	"github.com/parkdir/parkdir/internal/registry"
)

// ResponseError reports a directory response that cannot be merged
type ResponseError struct {
	Status Status
	Code   int
}

func (e *ResponseError) Error() string {
	if e.Status == StatusMasterFailed {
		return fmt.Sprintf("%s: status %d", e.Status, e.Code)
	}
	return e.Status.Text(0)
}

// Entry is one usable server from a directory response
type Entry struct {
	Address          string
	Name             string
	Description      string
	RequiresPassword bool
	Version          string
	Players          int
	MaxPlayers       int
}

// Apply copies the live fields of e onto s. The favourite flag is never
// touched by a merge.
func (e Entry) Apply(s *registry.Server) {
	if e.Name != "" {
		s.Name = e.Name
	}
	s.Description = e.Description
	s.RequiresPassword = e.RequiresPassword
	s.Version = e.Version
	s.Players = e.Players
	s.MaxPlayers = e.MaxPlayers
}

// Parse validates a directory response and extracts its usable entries.
// Malformed entries are skipped; a malformed envelope is a *ResponseError.
func Parse(body []byte) ([]Entry, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil || root == nil {
		return nil, &ResponseError{Status: StatusInvalidStatus}
	}

	code, ok := number(root["status"])
	if !ok {
		return nil, &ResponseError{Status: StatusInvalidStatus}
	}
	if code != 200 {
		return nil, &ResponseError{Status: StatusMasterFailed, Code: code}
	}

	raw := bytes.TrimSpace(root["servers"])
	if len(raw) == 0 || raw[0] != '[' {
		return nil, &ResponseError{Status: StatusInvalidServers}
	}
	var servers []json.RawMessage
	if err := json.Unmarshal(raw, &servers); err != nil {
		return nil, &ResponseError{Status: StatusInvalidServers}
	}

	entries := make([]Entry, 0, len(servers))
	for _, item := range servers {
		if e, ok := parseEntry(item); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func parseEntry(item json.RawMessage) (Entry, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
		return Entry{}, false
	}

	name, hasName := text(obj["name"])
	version, hasVersion := text(obj["version"])
	if !hasName && !hasVersion {
		return Entry{}, false
	}

	var ip struct {
		V4 []json.RawMessage `json:"v4"`
	}
	if err := json.Unmarshal(obj["ip"], &ip); err != nil || len(ip.V4) == 0 {
		return Entry{}, false
	}
	host, ok := text(ip.V4[0])
	if !ok || host == "" {
		return Entry{}, false
	}

	addr := host
	if port, ok := number(obj["port"]); ok && port > 0 {
		addr = net.JoinHostPort(host, strconv.Itoa(port))
	}

	description, _ := text(obj["description"])
	return Entry{
		Address:          addr,
		Name:             name,
		Description:      description,
		RequiresPassword: boolean(obj["requiresPassword"]),
		Version:          version,
		Players:          count(obj["players"]),
		MaxPlayers:       count(obj["maxPlayers"]),
	}, true
}

// text returns a JSON string value; null, absent and non-string values
// report false.
func text(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", false
	}
	return s, true
}

// number decodes a JSON number as an integer. Non-integral numbers decode
// as 0 but still report true, so a status of 200.5 is a failed status
// rather than a missing one.
func number(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, true
	}
	return int(f), true
}

func boolean(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}

// count decodes a player count, clamping to zero.
func count(raw json.RawMessage) int {
	n, ok := number(raw)
	if !ok || n < 0 {
		return 0
	}
	return n
}
