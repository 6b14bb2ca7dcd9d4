// Package boterrors provides categorized, wrapped errors shared across the
// grid trading engine, following the error taxonomy from spec section 7.
package boterrors

import (
	"fmt"
	"strings"
)

// Category classifies an error for retry/halt decisions.
type Category string

const (
	// Fatal / non-retryable categories.
	CategoryFatal         Category = "FATAL"
	CategoryCredentials   Category = "CREDENTIALS"
	CategoryConfiguration Category = "CONFIG"
	CategoryInvalidInput  Category = "INVALID_INPUT"
	CategoryInvariant     Category = "INVARIANT"
	CategoryRiskHalt      Category = "RISK_HALT"

	// Logical, non-error-to-the-engine categories (denied rather than failed).
	CategoryInsufficientFunds Category = "INSUFFICIENT_FUNDS"
	CategoryOversoldInventory Category = "OVERSOLD_INVENTORY"

	// Retriable / transient categories.
	CategoryNetwork    Category = "NETWORK"
	CategoryTimeout    Category = "TIMEOUT"
	CategoryTemporary  Category = "TEMPORARY"
	CategoryRateLimit  Category = "RATE_LIMIT"
	CategoryFeed       Category = "FEED"
	CategoryExchange   Category = "EXCHANGE"
	CategoryValidation Category = "VALIDATION"
)

// BotError is a categorized error with structured context, modeled on the
// component/operation/category shape used throughout this engine.
type BotError struct {
	Category   Category
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

func (e *BotError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s in %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s in %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *BotError) Unwrap() error {
	return e.Underlying
}

// IsRetryable reports whether the caller should retry the operation.
func (e *BotError) IsRetryable() bool {
	return e.Retryable
}

// IsFatal reports whether this error should halt the engine outright.
func (e *BotError) IsFatal() bool {
	switch e.Category {
	case CategoryFatal, CategoryCredentials, CategoryConfiguration, CategoryInvariant:
		return true
	default:
		return false
	}
}

// New creates a categorized error.
func New(category Category, component, operation, message string) *BotError {
	return &BotError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// Wrap wraps an existing error with categorized context.
func Wrap(err error, category Category, component, operation string) *BotError {
	if err == nil {
		return nil
	}
	return &BotError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

// WithContext attaches a key/value pair of diagnostic context.
func (e *BotError) WithContext(key string, value interface{}) *BotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRetryable overrides the retryable flag.
func (e *BotError) WithRetryable(retryable bool) *BotError {
	e.Retryable = retryable
	return e
}

func isRetryableCategory(category Category) bool {
	switch category {
	case CategoryNetwork, CategoryTimeout, CategoryTemporary, CategoryRateLimit, CategoryFeed, CategoryExchange:
		return true
	case CategoryFatal, CategoryCredentials, CategoryConfiguration, CategoryInvalidInput,
		CategoryInvariant, CategoryRiskHalt, CategoryInsufficientFunds, CategoryOversoldInventory:
		return false
	default:
		return true
	}
}

// Categorize attempts to classify a generic error by inspecting its message.
func Categorize(err error, component, operation string) *BotError {
	if err == nil {
		return nil
	}
	if botErr, ok := err.(*BotError); ok {
		return botErr
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "context deadline exceeded"):
		return Wrap(err, CategoryTimeout, component, operation)
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network") ||
		strings.Contains(msg, "dns") || strings.Contains(msg, "dial"):
		return Wrap(err, CategoryNetwork, component, operation)
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return Wrap(err, CategoryRateLimit, component, operation)
	case strings.Contains(msg, "insufficient") || strings.Contains(msg, "balance"):
		return Wrap(err, CategoryInsufficientFunds, component, operation).WithRetryable(false)
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "nan") || strings.Contains(msg, "constraint"):
		return Wrap(err, CategoryInvalidInput, component, operation).WithRetryable(false)
	default:
		return Wrap(err, CategoryTemporary, component, operation)
	}
}

// Common constructors used across the grid trader, simulator, and portfolio
// controller for the kinds named explicitly in spec section 7.
func NewInvalidPrice(component, operation string) *BotError {
	return New(CategoryInvalidInput, component, operation, "invalid price: NaN or non-positive").WithRetryable(false)
}

func NewInsufficientFunds(component, operation string) *BotError {
	return New(CategoryInsufficientFunds, component, operation, "insufficient cash for trade").WithRetryable(false)
}

func NewOversoldInventory(component, operation string) *BotError {
	return New(CategoryOversoldInventory, component, operation, "fill would drive inventory negative").WithRetryable(false)
}

func NewRiskHalt(component, reason string) *BotError {
	return New(CategoryRiskHalt, component, "authorize", reason).WithRetryable(false)
}

func NewEmptyBook(component, operation string) *BotError {
	return New(CategoryInvalidInput, component, operation, "no opposing liquidity in order book").WithRetryable(false)
}

func NewInvalidOrder(component, operation, message string) *BotError {
	return New(CategoryInvalidInput, component, operation, message).WithRetryable(false)
}

func NewInvariantViolation(component, operation, message string) *BotError {
	return New(CategoryInvariant, component, operation, message).WithRetryable(false)
}

// RecoveryAction suggests what the caller should do with a categorized error.
type RecoveryAction string

const (
	RecoveryRetry    RecoveryAction = "RETRY"
	RecoverySkip     RecoveryAction = "SKIP"
	RecoveryStop     RecoveryAction = "STOP"
	RecoveryWait     RecoveryAction = "WAIT"
	RecoveryQuiesce  RecoveryAction = "QUIESCE"
)

// RecoveryAction suggests a recovery strategy based on error category.
func (e *BotError) RecoveryAction() RecoveryAction {
	switch e.Category {
	case CategoryFatal, CategoryCredentials, CategoryConfiguration, CategoryInvariant, CategoryRiskHalt:
		return RecoveryStop
	case CategoryRateLimit:
		return RecoveryWait
	case CategoryFeed:
		return RecoveryQuiesce
	case CategoryNetwork, CategoryTimeout, CategoryTemporary, CategoryExchange:
		return RecoveryRetry
	case CategoryValidation, CategoryInvalidInput, CategoryInsufficientFunds, CategoryOversoldInventory:
		return RecoverySkip
	default:
		return RecoveryRetry
	}
}

// Stats tracks recent error counts per category, used to decide when a
// feed/pair should be quiesced (spec section 7: 5 consecutive failures).
type Stats struct {
	TotalErrors      int
	ErrorsByCategory map[Category]int
	RecentErrors     []*BotError
	MaxRecentErrors  int
}

// NewStats creates an error statistics tracker retaining the last
// maxRecentErrors entries.
func NewStats(maxRecentErrors int) *Stats {
	return &Stats{
		ErrorsByCategory: make(map[Category]int),
		RecentErrors:     make([]*BotError, 0, maxRecentErrors),
		MaxRecentErrors:  maxRecentErrors,
	}
}

// Record appends an error to the statistics, evicting the oldest entry once
// MaxRecentErrors is exceeded.
func (s *Stats) Record(err *BotError) {
	s.TotalErrors++
	s.ErrorsByCategory[err.Category]++
	s.RecentErrors = append(s.RecentErrors, err)
	if len(s.RecentErrors) > s.MaxRecentErrors {
		s.RecentErrors = s.RecentErrors[1:]
	}
}

// ConsecutiveFailures returns the number of trailing entries in RecentErrors
// that share the given category, stopping at the first non-matching entry.
func (s *Stats) ConsecutiveFailures(category Category) int {
	count := 0
	for i := len(s.RecentErrors) - 1; i >= 0; i-- {
		if s.RecentErrors[i].Category != category {
			break
		}
		count++
	}
	return count
}
