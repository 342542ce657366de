package services

import "errors"

// Dashboard errors
var (
	ErrNoSnapshot        = errors.New("no dashboard snapshot yet")
	ErrHistoryEmpty      = errors.New("history is empty")
	ErrInvalidDateRange  = errors.New("invalid date range")
	ErrWarehouseDisabled = errors.New("warehouse source disabled")
)
