package domain

import "errors"

// ErrorKind is one of the taxonomy entries from the error handling design:
// each core operation fails with exactly one kind, never a bare error.
type ErrorKind string

const (
	KindNotFound ErrorKind = "not_found"
	KindState    ErrorKind = "state"
	KindOwner    ErrorKind = "owner"
	KindSelfClaim ErrorKind = "self_claim"
	KindSelfEval ErrorKind = "self_eval"
	KindSkill    ErrorKind = "skill"
	KindIdentity ErrorKind = "identity"
	KindConflict ErrorKind = "conflict"
	KindExternal ErrorKind = "external"
	KindInternal ErrorKind = "internal"
)

// Error wraps an underlying error with a taxonomy Kind so transport
// adapters can map it to a status code without string matching.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a taxonomy error with no wrapped cause.
func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds a taxonomy error around an existing cause.
func Wrap(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the taxonomy Kind from err, or "" if err is not (or does
// not wrap) a *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Sentinel errors for callers that want errors.Is-style comparisons against
// a specific condition rather than a whole Kind bucket.
var (
	ErrNotFound  = errors.New("not found")
	ErrState     = errors.New("invalid state transition")
	ErrOwner     = errors.New("not the task owner")
	ErrSelfClaim = errors.New("hunter cannot claim its own published task")
	ErrSelfEval  = errors.New("hunter cannot evaluate its own report")
	ErrSkill     = errors.New("hunter lacks the required skill")
	ErrIdentity  = errors.New("missing or invalid namespace/hunter identity")
	ErrConflict  = errors.New("write lost a race, retry")
	ErrExternal  = errors.New("external dependency failed")
	ErrInternal  = errors.New("internal invariant violation")
)

func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindNotFound:
		return target == ErrNotFound
	case KindState:
		return target == ErrState
	case KindOwner:
		return target == ErrOwner
	case KindSelfClaim:
		return target == ErrSelfClaim
	case KindSelfEval:
		return target == ErrSelfEval
	case KindSkill:
		return target == ErrSkill
	case KindIdentity:
		return target == ErrIdentity
	case KindConflict:
		return target == ErrConflict
	case KindExternal:
		return target == ErrExternal
	case KindInternal:
		return target == ErrInternal
	}
	return false
}
