package registry

import "fmt"

// Server is one known game server. Records are owned by a Registry; callers
// only ever see copies.
type Server struct {
	Address          string `json:"address" yaml:"address"`
	Name             string `json:"name" yaml:"name"`
	Description      string `json:"description,omitempty" yaml:"description,omitempty"`
	Version          string `json:"version" yaml:"version"`
	RequiresPassword bool   `json:"requiresPassword" yaml:"requires_password"`
	Players          int    `json:"players" yaml:"players"`
	MaxPlayers       int    `json:"maxPlayers" yaml:"max_players"`
	Favourite        bool   `json:"favourite" yaml:"favourite"`
}

// PlayerCount renders "players/max", or an empty string when the maximum
// is unknown.
func (s Server) PlayerCount() string {
	if s.MaxPlayers <= 0 {
		return ""
	}
	return fmt.Sprintf("%d/%d", s.Players, s.MaxPlayers)
}

// Online reports whether the directory has supplied live data for s.
func (s Server) Online() bool {
	return s.Version != ""
}
