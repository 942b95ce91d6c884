package smtpmail

// ConnState represents the connection state of an Emailer.
type ConnState int

const (
	// StateAbsent indicates no connection is held.
	StateAbsent ConnState = iota

	// StateConnecting indicates a dial is in progress.
	StateConnecting

	// StateVerified indicates a connection that completed handshake and authentication.
	StateVerified
)

// String returns the string representation of the state.
func (s ConnState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateConnecting:
		return "connecting"
	case StateVerified:
		return "verified"
	default:
		return "unknown"
	}
}
