package inventory

import (
	"errors"
	"fmt"
	"time"
)

// MovementKind enumerates the two stock transaction directions.
type MovementKind string

const (
	// KindEntry increases stock on hand (purchases, returns, corrections).
	KindEntry MovementKind = "entry"
	// KindExit decreases stock on hand (sales, losses, corrections).
	KindExit MovementKind = "exit"
)

// Valid reports whether the kind is one of the two known directions.
func (k MovementKind) Valid() bool {
	return k == KindEntry || k == KindExit
}

// Delta returns the signed stock change for one unit of this kind.
func (k MovementKind) Delta() int64 {
	if k == KindExit {
		return -1
	}
	return 1
}

// Movement records a single stock transaction against a product.
type Movement struct {
	ID        int64
	Kind      MovementKind
	ProductID int64
	Quantity  int64
	Note      string
	UserID    int64
	CreatedAt time.Time
	UpdatedAt time.Time

	// Joined display fields, populated on reads.
	ProductName string
	ProductCode string
	RecordedBy  string
}

// MovementInput carries the fields a caller supplies when recording a
// movement.
type MovementInput struct {
	ProductID int64
	Quantity  int64
	Note      string
	ActorID   int64
}

// ListFilters narrows movement listings.
type ListFilters struct {
	Page      int
	Limit     int
	ProductID int64
}

// ErrInvalidQuantity indicates a non-positive quantity.
var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")

// ErrMovementNotFound indicates the movement does not exist.
var ErrMovementNotFound = errors.New("inventory: movement not found")

// ErrProductNotFound indicates the referenced product does not exist.
var ErrProductNotFound = errors.New("inventory: product not found")

// InsufficientStockError is returned when a movement would drive the
// product's stock below zero. Current carries the stock on hand at the
// moment the check ran, so callers can show it to the user.
type InsufficientStockError struct {
	ProductID int64
	Current   int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for product %d: have %d, need %d", e.ProductID, e.Current, e.Requested)
}

// IsInsufficientStock reports whether err wraps an InsufficientStockError.
func IsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return ise, true
	}
	return nil, false
}
