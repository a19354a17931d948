package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies API failures so callers can branch without matching
// message text.
type Kind string

const (
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindStock      Kind = "stock"
	KindEmptyCart  Kind = "empty_cart"
	KindNotFound   Kind = "not_found"
	KindNetwork    Kind = "network"
	KindTimeout    Kind = "timeout"
	KindUnknown    Kind = "unknown"
)

// Machine codes the server attaches to error bodies.
const (
	CodeAlreadyLoggedIn    = "ALREADY_LOGGED_IN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeOutOfStock         = "OUT_OF_STOCK"
	CodeItemNotFound       = "ITEM_NOT_FOUND"
	CodeEmptyCart          = "EMPTY_CART"
)

// Error is a failure reported by the storefront API or its transport.
// Message carries the server's text verbatim so views can display it
// unchanged.
type Error struct {
	Kind    Kind
	Code    string // machine code from the response body, if any
	Message string
	Status  int // HTTP status; 0 for transport-level failures
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// IsAlreadyActive reports whether err is the single-active-session refusal,
// which must be surfaced distinctly from bad credentials.
func IsAlreadyActive(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == CodeAlreadyLoggedIn
}

// classify maps a decoded error body onto a Kind. The machine code wins;
// the HTTP status is the fallback.
func classify(status int, code string) Kind {
	switch code {
	case CodeAlreadyLoggedIn, CodeInvalidCredentials:
		return KindAuth
	case CodeOutOfStock:
		return KindStock
	case CodeItemNotFound:
		return KindNotFound
	case CodeEmptyCart:
		return KindEmptyCart
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return KindValidation
	}
	return KindUnknown
}
