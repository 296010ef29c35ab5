package domain

import "errors"

// Domain errors
var (
	// Ticket errors
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrTicketNotOwned     = errors.New("ticket does not belong to this account")
	ErrTicketAlreadyUsed  = errors.New("ticket has already been used")
	ErrInvalidTicketState = errors.New("invalid ticket status")

	// Scheduled service errors
	ErrServiceNotFound    = errors.New("scheduled service not found")
	ErrVehicleNotFound    = errors.New("vehicle not found")
	ErrVehicleNotAssigned = errors.New("scheduled service has no vehicle assigned")

	// Trip validation errors
	ErrNoStopsDefined   = errors.New("scheduled service has no stops defined")
	ErrStopNotFound     = errors.New("station is not a stop of this service")
	ErrInvalidDirection = errors.New("origin must precede destination")

	// Capacity errors
	ErrNoSeatsAvailable = errors.New("no seats available for the requested class")
	ErrLedgerNotFound   = errors.New("capacity ledger not found")
	ErrClassNotTracked  = errors.New("fare class is not tracked for this service")

	// Validation errors
	ErrInvalidServiceID     = errors.New("invalid scheduled service id")
	ErrInvalidTicketID      = errors.New("invalid ticket id")
	ErrInvalidStationID     = errors.New("invalid station id")
	ErrInvalidFareClass     = errors.New("invalid fare class")
	ErrInvalidPassengers    = errors.New("passenger list must not be empty or contain blanks")
	ErrInvalidAccountID     = errors.New("invalid account id")
	ErrInvalidQuantity      = errors.New("quantity must be greater than zero")
	ErrPassengerNotOwned    = errors.New("passenger does not belong to this account")
	ErrInvalidCapacityDelta = errors.New("capacity delta must be greater than zero")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTicketNotFound) ||
		errors.Is(err, ErrServiceNotFound) ||
		errors.Is(err, ErrVehicleNotFound) ||
		errors.Is(err, ErrLedgerNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidServiceID) ||
		errors.Is(err, ErrInvalidTicketID) ||
		errors.Is(err, ErrInvalidStationID) ||
		errors.Is(err, ErrInvalidFareClass) ||
		errors.Is(err, ErrInvalidPassengers) ||
		errors.Is(err, ErrInvalidAccountID) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidCapacityDelta)
}

// IsForbiddenError checks if the error is an ownership violation
func IsForbiddenError(err error) bool {
	return errors.Is(err, ErrPassengerNotOwned) ||
		errors.Is(err, ErrTicketNotOwned)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrNoSeatsAvailable) ||
		errors.Is(err, ErrVehicleNotAssigned) ||
		errors.Is(err, ErrNoStopsDefined) ||
		errors.Is(err, ErrStopNotFound) ||
		errors.Is(err, ErrInvalidDirection) ||
		errors.Is(err, ErrClassNotTracked) ||
		errors.Is(err, ErrTicketAlreadyUsed)
}
