package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalid           = errors.New("invalid request")
	ErrForbidden         = errors.New("forbidden")
	ErrDayNotStarted     = errors.New("day session has not been started")
	ErrOpenOrders        = errors.New("there are active or billed orders")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrOrderLocked       = errors.New("order can no longer be changed")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrNothingToSend     = errors.New("nothing to send to kitchen or bar")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrTableHasOpenBills = errors.New("table already has open bills")
	ErrTakeawayInUse     = errors.New("takeaway number is already in use")
	ErrSplitNotAllowed   = errors.New("order cannot be split")
	ErrCategoryInUse     = errors.New("category is used by menu items")
	ErrSelfDelete        = errors.New("cannot delete the signed-in user")
	ErrUnknownUser       = errors.New("user no longer exists")
)

// StockError reports how many units of a tracked item are still available.
type StockError struct {
	MenuItemID string
	Name       string
	Remaining  int
}

func (e *StockError) Error() string {
	if e.Remaining <= 0 {
		return fmt.Sprintf("%s is out of stock", e.Name)
	}
	return fmt.Sprintf("only %d of %s left in stock", e.Remaining, e.Name)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
