package rpc

import (
	"errors"

	"fusionswap/crypto"
	"fusionswap/native/escrow"
)

type createEscrowParams struct {
	Recipient     string         `json:"recipient"`
	Asset         string         `json:"asset"`
	Amount        string         `json:"amount"`
	SafetyDeposit *string        `json:"safetyDeposit,omitempty"`
	ChainID       uint64         `json:"chainId"`
	HashLock      string         `json:"hashlock"`
	Durations     *durationsJSON `json:"durations,omitempty"`
}

type withdrawParams struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

func (s *Server) createEscrow(c *call) (interface{}, error) {
	var p createEscrowParams
	if err := c.bind(&p); err != nil {
		return nil, err
	}
	recipient, err := crypto.ParseAddress(p.Recipient)
	if err != nil {
		return nil, invalidParams(err)
	}
	amount, err := parseAmount(p.Amount, true)
	if err != nil {
		return nil, invalidParams(err)
	}
	deposit, err := parseOptionalAmount(p.SafetyDeposit)
	if err != nil {
		return nil, invalidParams(err)
	}
	lock, err := escrow.ParseDigest(p.HashLock)
	if err != nil {
		return nil, invalidParams(err)
	}
	esc, err := s.engine.CreateEscrow(c.caller.Address, escrow.ResolverEscrowRequest{
		Recipient:     recipient,
		Asset:         p.Asset,
		Amount:        amount,
		SafetyDeposit: deposit,
		ChainID:       p.ChainID,
		HashLock:      lock,
		Durations:     p.Durations.engine(),
	})
	if err != nil {
		return nil, err
	}
	return escrowView(esc), nil
}

func (s *Server) withdraw(c *call) (interface{}, error) {
	var p withdrawParams
	if err := c.bind(&p); err != nil {
		return nil, err
	}
	id, err := parseID(p.ID)
	if err != nil {
		return nil, invalidParams(err)
	}
	secret, err := parseHex(p.Secret)
	if err != nil {
		return nil, invalidParams(err)
	}
	if len(secret) == 0 {
		return nil, invalidParams(errors.New("secret required"))
	}
	if err := s.engine.Withdraw(c.caller.Address, id, secret); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) recoverEscrow(c *call) (interface{}, error) {
	id, err := c.bindID()
	if err != nil {
		return nil, err
	}
	if err := s.engine.Recover(c.caller.Address, id); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) getEscrow(c *call) (interface{}, error) {
	id, err := c.bindID()
	if err != nil {
		return nil, err
	}
	esc, err := s.engine.Escrow(id)
	if err != nil {
		return nil, err
	}
	return escrowView(esc), nil
}

func (s *Server) escrowPhase(c *call) (interface{}, error) {
	id, err := c.bindID()
	if err != nil {
		return nil, err
	}
	info, err := s.engine.EscrowPhase(id)
	if err != nil {
		return nil, err
	}
	return phaseView(info), nil
}
