package records

import "errors"

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrDoubleBooked    = errors.New("doctor is already booked")
	ErrNegativeAmount  = errors.New("amount must be non-negative")
)
