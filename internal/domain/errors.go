package domain

import "errors"

// ErrorKind classifies domain errors for callers that render them
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUnauthorized
	KindPrecondition
	KindNotFound
	KindInvalid
	KindUnsupported
)

// Error is a domain error with a stable kind and a user-facing message
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Authorization. The match+PIN check never reveals which half failed.
var (
	ErrInvalidMatchOrPIN = newError(KindUnauthorized, "invalid match or PIN")
)

// Match-lead coordination between coaches
var (
	ErrLeadUnknownPIN     = newError(KindUnauthorized, "Onbekende PIN")
	ErrLeadMatchNotFound  = newError(KindNotFound, "Wedstrijd niet gevonden")
	ErrLeadNoTeamAccess   = newError(KindUnauthorized, "Je hebt geen toegang tot dit team")
	ErrLeadAlreadyClaimed = newError(KindPrecondition, "Deze wedstrijd heeft al een wedstrijdleider")
	ErrLeadNotCurrentLead = newError(KindPrecondition, "Je bent niet de wedstrijdleider van deze wedstrijd")
)

// State transition preconditions
var (
	ErrNotScheduled   = newError(KindPrecondition, "match is not scheduled")
	ErrAlreadyStarted = newError(KindPrecondition, "match has already started")
	ErrNotLive        = newError(KindPrecondition, "match is not live")
	ErrNotHalftime    = newError(KindPrecondition, "match is not at halftime")
	ErrClockPaused    = newError(KindPrecondition, "clock is already paused")
	ErrClockNotPaused = newError(KindPrecondition, "clock is not paused")
	ErrNotPregame     = newError(KindPrecondition, "players can only be marked absent before kick-off")
	ErrPlayerAbsent   = newError(KindPrecondition, "player is marked absent")
	ErrSamePlayer     = newError(KindInvalid, "player in and player out must differ")
)

// Lookups and validation
var (
	ErrMatchNotFound       = newError(KindNotFound, "match not found")
	ErrPlayerNotFound      = newError(KindNotFound, "player not found in match")
	ErrRefereeNotFound     = newError(KindNotFound, "referee not found")
	ErrTeamNotFound        = newError(KindNotFound, "team not found")
	ErrNotFound            = newError(KindNotFound, "not found")
	ErrInvalidQuarterCount = newError(KindInvalid, "quarter count must be 2 or 4")
	ErrInvalidRequest      = newError(KindInvalid, "invalid request")
	ErrInvalidSide         = newError(KindInvalid, "side must be home or away")
	ErrInvalidCard         = newError(KindInvalid, "card must be yellow or red")
	ErrInvalidSlot         = newError(KindInvalid, "field slot must not be negative")
	ErrCodeSpaceExhausted  = newError(KindInternal, "could not generate a unique public code")
	ErrReadOnly            = newError(KindInternal, "write attempted in read-only transaction")
	ErrInternalError       = newError(KindInternal, "internal server error")
)

// Not implemented yet
var (
	ErrUnsupported = newError(KindUnsupported, "not supported yet")
)

// KindOf returns the kind of the first domain error in err's chain
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsUnauthorized checks if an error is an authorization failure
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// IsPrecondition checks if an error is an invalid state transition
func IsPrecondition(err error) bool {
	return KindOf(err) == KindPrecondition
}
