package protocol

import "fmt"

// Status is the outcome flag carried by every response.
type Status uint8

const (
	StatusOK    Status = 1
	StatusError Status = 2
)

func (s Status) Valid() bool {
	return s == StatusOK || s == StatusError
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusError:
		return "ERROR"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// CopycatError is the closed set of cluster-level failures a response can
// carry. ErrNone is only valid alongside StatusOK.
type CopycatError uint8

const (
	ErrNone               CopycatError = 0
	ErrNoLeader           CopycatError = 1
	ErrQueryFailure       CopycatError = 2
	ErrCommandFailure     CopycatError = 3
	ErrApplicationError   CopycatError = 4
	ErrIllegalMemberState CopycatError = 5
	ErrUnknownClient      CopycatError = 6
	ErrUnknownSession     CopycatError = 7
	ErrInternalError      CopycatError = 8
	ErrConfigurationError CopycatError = 9
	ErrRequestExpired     CopycatError = 10
	ErrSessionExpired     CopycatError = 11
)

var copycatErrorNames = map[CopycatError]string{
	ErrNoLeader:           "no leader",
	ErrQueryFailure:       "query failure",
	ErrCommandFailure:     "command failure",
	ErrApplicationError:   "application error",
	ErrIllegalMemberState: "illegal member state",
	ErrUnknownClient:      "unknown client",
	ErrUnknownSession:     "unknown session",
	ErrInternalError:      "internal error",
	ErrConfigurationError: "configuration error",
	ErrRequestExpired:     "request expired",
	ErrSessionExpired:     "session expired",
}

// Known reports whether e is a defined failure code. ErrNone is not.
func (e CopycatError) Known() bool {
	_, ok := copycatErrorNames[e]
	return ok
}

func (e CopycatError) Error() string {
	if name, ok := copycatErrorNames[e]; ok {
		return "copycat: " + name
	}
	if e == ErrNone {
		return "copycat: none"
	}
	return fmt.Sprintf("copycat: unknown error %d", uint8(e))
}

// Recovery is the caller action a failure code calls for.
type Recovery int

const (
	RecoveryNone Recovery = iota
	RecoveryRetry
	RecoveryReregister
)

func (r Recovery) String() string {
	switch r {
	case RecoveryRetry:
		return "retry"
	case RecoveryReregister:
		return "reregister"
	default:
		return "none"
	}
}

// Recovery classifies e. Retry means resend the same session/sequence,
// possibly to another member; Reregister means the session is gone.
func (e CopycatError) Recovery() Recovery {
	switch e {
	case ErrNoLeader, ErrQueryFailure, ErrCommandFailure, ErrRequestExpired, ErrIllegalMemberState:
		return RecoveryRetry
	case ErrUnknownSession, ErrSessionExpired, ErrUnknownClient:
		return RecoveryReregister
	default:
		return RecoveryNone
	}
}
