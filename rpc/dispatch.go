package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"fusionswap/observability/logging"
	"fusionswap/rpc/auth"
	"fusionswap/rpc/middleware"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

// call is one decoded request as seen by a handler.
type call struct {
	ctx    context.Context
	params []json.RawMessage
	caller *auth.Principal
}

// bind decodes the single parameter object into dst, rejecting unknown
// fields.
func (c *call) bind(dst interface{}) error {
	if len(c.params) != 1 {
		return invalidParams(errors.New("exactly one parameter object expected"))
	}
	dec := json.NewDecoder(bytes.NewReader(c.params[0]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return invalidParams(err)
	}
	return nil
}

// bindOptional is bind for methods whose parameter object may be omitted.
func (c *call) bindOptional(dst interface{}) error {
	if len(c.params) == 0 {
		return nil
	}
	return c.bind(dst)
}

type handlerFunc func(c *call) (interface{}, error)

type method struct {
	handler handlerFunc
	// mutating methods act as the token subject and need a bearer token.
	mutating bool
}

func (s *Server) methodTable() map[string]method {
	tx := func(h handlerFunc) method { return method{handler: h, mutating: true} }
	q := func(h handlerFunc) method { return method{handler: h} }
	return map[string]method{
		"fusion_createOrder":   tx(s.createOrder),
		"fusion_cancelOrder":   tx(s.cancelOrder),
		"fusion_expireOrder":   tx(s.expireOrder),
		"fusion_acceptOrder":   tx(s.acceptOrder),
		"fusion_createAuction": tx(s.createAuction),
		"fusion_cancelAuction": tx(s.cancelAuction),
		"fusion_expireAuction": tx(s.expireAuction),
		"fusion_fillAuction":   tx(s.fillAuction),
		"fusion_createEscrow":  tx(s.createEscrow),
		"fusion_withdraw":      tx(s.withdraw),
		"fusion_recover":       tx(s.recoverEscrow),

		"fusion_registerResolver":   tx(s.registerResolver),
		"fusion_deregisterResolver": tx(s.deregisterResolver),
		"fusion_updateParams":       tx(s.updateParams),
		"fusion_mint":               tx(s.mint),
		"fusion_transfer":           tx(s.transfer),

		"fusion_getOrder":        q(s.getOrder),
		"fusion_getAuction":      q(s.getAuction),
		"fusion_getEscrow":       q(s.getEscrow),
		"fusion_escrowPhase":     q(s.escrowPhase),
		"fusion_auctionPrice":    q(s.auctionPrice),
		"fusion_exists":          q(s.exists),
		"fusion_balance":         q(s.balance),
		"fusion_params":          q(s.getParams),
		"fusion_resolvers":       q(s.resolvers),
		"fusion_time":            q(s.now),
		"fusion_events":          q(s.recentEvents),
		"fusion_status":          q(s.status),
		"fusion_listEvents":      q(s.listEvents),
		"fusion_escrowsBySource": q(s.escrowsBySource),
	}
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}
	m, ok := s.methods[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return
	}

	c := &call{ctx: r.Context(), params: req.Params}
	if m.mutating {
		principal, err := s.authenticate(r)
		if err != nil {
			s.reply(w, r, req, err)
			return
		}
		c.caller = principal
	}
	result, err := m.handler(c)
	if err != nil {
		s.reply(w, r, req, err)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) authenticate(r *http.Request) (*auth.Principal, error) {
	if s.verifier == nil {
		return nil, errAuthRequired
	}
	principal, err := s.verifier.Authenticate(r)
	if err != nil {
		s.logger.Debug("rpc token rejected",
			"request_id", middleware.RequestID(r.Context()),
			"token_fp", logging.Fingerprint(auth.ExtractBearer(r.Header.Get("Authorization"))),
			"error", err)
		return nil, err
	}
	return principal, nil
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request, req *RPCRequest, err error) {
	rep := replyFor(err)
	if rep.status >= http.StatusInternalServerError {
		s.logger.Error("rpc method failed",
			"method", req.Method,
			"request_id", middleware.RequestID(r.Context()),
			"error", err)
	}
	writeError(w, rep.status, req.ID, rep.code, rep.message, rep.data)
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}
