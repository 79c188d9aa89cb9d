package utils

import (
	"decred.org/dcrwallet/v2/errors"
	"github.com/asdine/storm"
	"github.com/dgraph-io/badger"
)

const (
	// Error Codes
	ErrInsufficientBalance          = "insufficient_balance"
	ErrInvalid                      = "invalid"
	ErrInvalidAddress               = "invalid_address"
	ErrInvalidChain                 = "invalid_chain"
	ErrExist                        = "exists"
	ErrNotExist                     = "not_exists"
	ErrUnavailable                  = "unavailable"
	ErrContextCanceled              = "context_canceled"
	ErrFailedPrecondition           = "failed_precondition"
	ErrListenerAlreadyExist         = "listener_already_exist"
	ErrLogRotatorAlreadyInitialized = "log_rotator_already_initialized"
	ErrDatabaseInUse                = "db_in_use"
	ErrNothingToSubmit              = "nothing_to_submit"
	ErrStepInProgress               = "step_in_progress"
	ErrTrackNotFound                = "track_not_found"
	ErrAmountTooLarge               = "amount_too_large"
	ErrRateUnavailable              = "rate_unavailable"
	ErrNoAccountSelected            = "no_account_selected"
	ErrNotReviewed                  = "not_reviewed"
)

var (
	ErrUnknownChain       = errors.New("unknown chain type found")
	ErrUnknownDriver      = errors.New("unknown database driver")
	ErrSubmittedReferenda = errors.New("submitted referendum could not be found")
)

// TranslateError maps store and library specific errors onto the error codes
// above so callers only ever deal with one vocabulary.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	switch err {
	case storm.ErrNotFound, badger.ErrKeyNotFound:
		return errors.New(ErrNotExist)
	}

	if err, ok := err.(*errors.Error); ok {
		switch err.Kind {
		case errors.InsufficientBalance:
			return errors.New(ErrInsufficientBalance)
		case errors.NotExist:
			return errors.New(ErrNotExist)
		case errors.Exist:
			return errors.New(ErrExist)
		case errors.Invalid:
			return errors.New(ErrInvalid)
		}
	}
	return err
}
