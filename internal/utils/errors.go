package utils

import "errors"

// Common application errors used across services.
var (
	ErrItemNotFound      = errors.New("ITEM_NOT_FOUND")
	ErrOrderNotFound     = errors.New("ORDER_NOT_FOUND")
	ErrReportNotFound    = errors.New("REPORT_NOT_FOUND")
	ErrInvalidSignature  = errors.New("INVALID_SIGNATURE")
	ErrMissingSignature  = errors.New("MISSING_SIGNATURE")
	ErrInvalidEnvelope   = errors.New("INVALID_ENVELOPE")
	ErrInvalidStockLevel = errors.New("INVALID_STOCK_LEVEL")
)
