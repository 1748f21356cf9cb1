package rpc

import (
	"fusionswap/native/escrow"
)

type createOrderParams struct {
	Asset              string         `json:"asset"`
	Amount             string         `json:"amount"`
	SafetyDeposit      *string        `json:"safetyDeposit,omitempty"`
	DestinationChainID uint64         `json:"destinationChainId"`
	HashLocks          []string       `json:"hashlocks"`
	Whitelist          []string       `json:"whitelist,omitempty"`
	AutoCancelAfter    uint64         `json:"autoCancelAfter,omitempty"`
	Durations          *durationsJSON `json:"durations,omitempty"`
}

type idParams struct {
	ID string `json:"id"`
}

type fillParams struct {
	ID        string  `json:"id"`
	Amount    *string `json:"amount,omitempty"`
	FillIndex *uint32 `json:"fillIndex,omitempty"`
}

func (p fillParams) request() ([32]byte, escrow.FillRequest, error) {
	id, err := parseID(p.ID)
	if err != nil {
		return id, escrow.FillRequest{}, invalidParams(err)
	}
	amount, err := parseOptionalAmount(p.Amount)
	if err != nil {
		return id, escrow.FillRequest{}, invalidParams(err)
	}
	return id, escrow.FillRequest{Amount: amount, FillIndex: p.FillIndex}, nil
}

func (c *call) bindID() ([32]byte, error) {
	var p idParams
	if err := c.bind(&p); err != nil {
		return [32]byte{}, err
	}
	id, err := parseID(p.ID)
	if err != nil {
		return id, invalidParams(err)
	}
	return id, nil
}

func (s *Server) createOrder(c *call) (interface{}, error) {
	var p createOrderParams
	if err := c.bind(&p); err != nil {
		return nil, err
	}
	amount, err := parseAmount(p.Amount, true)
	if err != nil {
		return nil, invalidParams(err)
	}
	deposit, err := parseOptionalAmount(p.SafetyDeposit)
	if err != nil {
		return nil, invalidParams(err)
	}
	locks, err := parseDigests(p.HashLocks)
	if err != nil {
		return nil, invalidParams(err)
	}
	whitelist, err := parseAddresses(p.Whitelist)
	if err != nil {
		return nil, invalidParams(err)
	}
	order, err := s.engine.CreateOrder(c.caller.Address, escrow.OrderRequest{
		Asset:              p.Asset,
		Amount:             amount,
		SafetyDeposit:      deposit,
		DestinationChainID: p.DestinationChainID,
		HashLocks:          locks,
		Whitelist:          whitelist,
		AutoCancelAfter:    p.AutoCancelAfter,
		Durations:          p.Durations.engine(),
	})
	if err != nil {
		return nil, err
	}
	return orderView(order), nil
}

func (s *Server) cancelOrder(c *call) (interface{}, error) {
	id, err := c.bindID()
	if err != nil {
		return nil, err
	}
	if err := s.engine.CancelOrder(c.caller.Address, id); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) expireOrder(c *call) (interface{}, error) {
	id, err := c.bindID()
	if err != nil {
		return nil, err
	}
	if err := s.engine.ExpireOrder(c.caller.Address, id); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) acceptOrder(c *call) (interface{}, error) {
	var p fillParams
	if err := c.bind(&p); err != nil {
		return nil, err
	}
	id, req, err := p.request()
	if err != nil {
		return nil, err
	}
	esc, err := s.engine.AcceptOrder(c.caller.Address, id, req)
	if err != nil {
		return nil, err
	}
	return escrowView(esc), nil
}

func (s *Server) getOrder(c *call) (interface{}, error) {
	id, err := c.bindID()
	if err != nil {
		return nil, err
	}
	order, err := s.engine.Order(id)
	if err != nil {
		return nil, err
	}
	return orderView(order), nil
}
