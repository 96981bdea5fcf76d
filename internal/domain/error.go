package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrCodeNotFound         = errors.New("promo code invalid or already used")
	ErrPricingNotConfigured = errors.New("no pricing link configured")
	ErrRateLimited          = errors.New("too many attempts")
	ErrInvalidExecContext   = errors.New("invalid executor context")
	ErrReadDatabaseRow      = errors.New("failed to read database row")
)
