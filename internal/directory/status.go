package directory

import "fmt"

// State is the fetcher's position in a refresh cycle
type State int

const (
	Idle State = iota
	Requesting
)

func (s State) String() string {
	if s == Requesting {
		return "requesting"
	}
	return "idle"
}

// Status is the user-visible outcome of the latest refresh
type Status int

const (
	StatusConnecting Status = iota
	StatusNoConnection
	// the response had no numeric "status" field
	StatusInvalidStatus
	StatusMasterFailed
	// the response had no "servers" array
	StatusInvalidServers
	StatusPlayersOnline
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusNoConnection:
		return "no connection"
	case StatusInvalidStatus, StatusInvalidServers:
		return "invalid response"
	case StatusMasterFailed:
		return "master server failed"
	case StatusPlayersOnline:
		return "players online"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Text renders the status line shown under the server list.
func (s Status) Text(playersOnline int) string {
	switch s {
	case StatusConnecting:
		return "Connecting to directory server..."
	case StatusNoConnection:
		return "Unable to connect to directory server"
	case StatusInvalidStatus:
		return "Invalid response from directory server (status is not a number)"
	case StatusInvalidServers:
		return "Invalid response from directory server (servers is not an array)"
	case StatusMasterFailed:
		return "Directory server failed to return servers"
	case StatusPlayersOnline:
		if playersOnline == 1 {
			return "1 player online"
		}
		return fmt.Sprintf("%d players online", playersOnline)
	default:
		return s.String()
	}
}

// Snapshot is a consistent view of the fetcher's scalars
type Snapshot struct {
	State         State  `json:"-"`
	Status        Status `json:"-"`
	PlayersOnline int    `json:"playersOnline"`
}

// Text renders the status line for the snapshot.
func (s Snapshot) Text() string {
	return s.Status.Text(s.PlayersOnline)
}
