package bybit

import (
	"errors"
	"fmt"
)

// BybitError carries a Bybit v5 API retCode/retMsg pair as a Go error.
type BybitError struct {
	Code    int
	Message string
}

func (e *BybitError) Error() string {
	return fmt.Sprintf("bybit api error %d: %s", e.Code, e.Message)
}

// Error codes the grid trading adapter distinguishes between. Bybit defines
// many more; these are the ones that change how a caller should react.
const (
	ErrCodeOrderNotFound       = 110001
	ErrCodeInvalidOrderType    = 110004
	ErrCodeInsufficientBalance = 110007
	ErrCodeSymbolNotFound      = 110009
	ErrCodeInvalidQuantity     = 110020
	ErrCodeInvalidPrice        = 110021
	ErrCodeRateLimitExceeded   = 10006
	ErrCodeMarketClosed        = 110043
)

// ParseAPIError converts a v5 retCode/retMsg pair into an error, or nil if
// the call succeeded (retCode 0).
func ParseAPIError(retCode int, retMsg string) error {
	if retCode == 0 {
		return nil
	}
	return &BybitError{Code: retCode, Message: retMsg}
}

// IsRetryableError reports whether err (or an error it wraps) is a Bybit
// API error that a caller's own backoff should absorb; of the codes above,
// only rate limiting is treated as transient.
func IsRetryableError(err error) bool {
	var bErr *BybitError
	if !errors.As(err, &bErr) {
		return false
	}
	return bErr.Code == ErrCodeRateLimitExceeded
}

// IsRateLimitError reports whether err (or an error it wraps) specifically
// signals Bybit rate limiting.
func IsRateLimitError(err error) bool {
	var bErr *BybitError
	return errors.As(err, &bErr) && bErr.Code == ErrCodeRateLimitExceeded
}
