package auth

import "errors"

var (
	NotAuthenticatedErr       = errors.New("not authenticated")
	IncompleteAuthResponseErr = errors.New("auth response missing user or tokens")
)
