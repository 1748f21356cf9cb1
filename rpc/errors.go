package rpc

import (
	"errors"
	"net/http"

	"fusionswap/indexer"
	"fusionswap/native/escrow"
	"fusionswap/rpc/auth"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeUnavailable    = -32002
)

// Escrow failures carry one code per error kind; data holds the kind label.
const (
	codeInvalidAmount       = -32030
	codeInvalidSecret       = -32031
	codeInsufficientBalance = -32032
	codeInvalidCaller       = -32033
	codeInvalidResolver     = -32034
	codeInvalidPhase        = -32035
	codeNotFound            = -32036
)

var kindCodes = map[string]struct {
	code   int
	status int
}{
	"invalid_amount":       {codeInvalidAmount, http.StatusBadRequest},
	"invalid_secret":       {codeInvalidSecret, http.StatusBadRequest},
	"insufficient_balance": {codeInsufficientBalance, http.StatusBadRequest},
	"invalid_caller":       {codeInvalidCaller, http.StatusForbidden},
	"invalid_resolver":     {codeInvalidResolver, http.StatusForbidden},
	"invalid_phase":        {codeInvalidPhase, http.StatusConflict},
	"not_found":            {codeNotFound, http.StatusNotFound},
}

var (
	errAuthRequired       = errors.New("authentication required")
	errIndexerUnavailable = errors.New("indexer not enabled")
)

type paramError struct{ err error }

func (e *paramError) Error() string { return e.err.Error() }
func (e *paramError) Unwrap() error { return e.err }

func invalidParams(err error) error { return &paramError{err: err} }

type errorReply struct {
	status  int
	code    int
	message string
	data    interface{}
}

// replyFor maps a handler error onto a JSON-RPC error. Protocol error kinds
// win over the parameter classification so a malformed hashlock still
// reports invalid_secret.
func replyFor(err error) errorReply {
	if kind := escrow.Kind(err); kind != "internal" {
		if c, ok := kindCodes[kind]; ok {
			return errorReply{status: c.status, code: c.code, message: err.Error(), data: kind}
		}
	}
	var pe *paramError
	switch {
	case errors.As(err, &pe):
		return errorReply{status: http.StatusBadRequest, code: codeInvalidParams, message: "invalid_params", data: err.Error()}
	case errors.Is(err, errAuthRequired), errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return errorReply{status: http.StatusUnauthorized, code: codeUnauthorized, message: "unauthorized", data: err.Error()}
	case errors.Is(err, indexer.ErrNotFound):
		return errorReply{status: http.StatusNotFound, code: codeNotFound, message: err.Error(), data: "not_found"}
	case errors.Is(err, errIndexerUnavailable):
		return errorReply{status: http.StatusServiceUnavailable, code: codeUnavailable, message: err.Error()}
	}
	return errorReply{status: http.StatusInternalServerError, code: codeServerError, message: "internal error"}
}
