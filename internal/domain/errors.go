package domain

import "errors"

// Kind groups errors by how a caller should react to them.
type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindNotFound         Kind = "not_found"
	KindUnauthorized     Kind = "unauthorized"
	KindInvalidState     Kind = "invalid_state"
	KindExternalTransfer Kind = "external_transfer"
	KindInternal         Kind = "internal"
)

type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func newError(kind Kind, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrInvalidBeneficiary = newError(KindInvalidInput, "invalid beneficiary")
	ErrInvalidGoal        = newError(KindInvalidInput, "goal amount must be positive")
	ErrInvalidDuration    = newError(KindInvalidInput, "duration must be positive")
	ErrEmptyTitle         = newError(KindInvalidInput, "title is required")
	ErrInvalidAmount      = newError(KindInvalidInput, "invalid amount")
	ErrFeeTooHigh         = newError(KindInvalidInput, "platform fee exceeds maximum")
	ErrInvalidRecipient   = newError(KindInvalidInput, "invalid fee recipient")

	ErrCampaignNotFound = newError(KindNotFound, "campaign not found")

	ErrUnauthorized = newError(KindUnauthorized, "unauthorized")

	ErrDeadlinePassed   = newError(KindInvalidState, "campaign deadline passed")
	ErrAlreadyFinalized = newError(KindInvalidState, "campaign already finalized")
	ErrNotFinalizable   = newError(KindInvalidState, "campaign cannot be finalized yet")
	ErrNotCancelable    = newError(KindInvalidState, "campaign cannot be cancelled")
	ErrNoFunds          = newError(KindInvalidState, "campaign has no funds to distribute")

	// ErrTransferFailed wraps every error returned by the token collaborator.
	ErrTransferFailed = newError(KindExternalTransfer, "token transfer failed")

	// ErrJournalFailed reports that the durable event log refused an append. The
	// operation it belonged to did not happen.
	ErrJournalFailed = newError(KindInternal, "event journal append failed")
)

// KindOf classifies err. Errors that did not originate from this package are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindInternal
}
