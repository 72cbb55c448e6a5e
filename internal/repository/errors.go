package repository

import "errors"

var (
	// ErrDuplicate is returned when a unique constraint rejects the write
	ErrDuplicate = errors.New("duplicate record")
	// ErrInsufficientStock is returned when a tracked product has fewer units than requested
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrComandaNotOpen is returned when a comanda changed state under a concurrent write
	ErrComandaNotOpen = errors.New("comanda is not open")
)

// ErrDiscountTooHigh is returned when closing with a discount above the subtotal
var ErrDiscountTooHigh = errors.New("discount exceeds subtotal")
