package billing

import "errors"

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMissingMetadata  = errors.New("checkout session is missing userId or creditsAmount metadata")
	ErrProcessor        = errors.New("payment processor request failed")
	ErrNotConfigured    = errors.New("payment processor is not configured")
)
