package rpc

import (
	"fusionswap/crypto"
)

type resolverParams struct {
	Resolver string `json:"resolver"`
	Label    string `json:"label,omitempty"`
}

type assetMoveParams struct {
	To     string `json:"to"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

func (s *Server) registerResolver(c *call) (interface{}, error) {
	var p resolverParams
	if err := c.bind(&p); err != nil {
		return nil, err
	}
	resolver, err := crypto.ParseAddress(p.Resolver)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.engine.RegisterResolver(c.caller.Address, resolver, p.Label); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) deregisterResolver(c *call) (interface{}, error) {
	var p resolverParams
	if err := c.bind(&p); err != nil {
		return nil, err
	}
	resolver, err := crypto.ParseAddress(p.Resolver)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.engine.DeregisterResolver(c.caller.Address, resolver); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) updateParams(c *call) (interface{}, error) {
	var p paramsJSON
	if err := c.bind(&p); err != nil {
		return nil, err
	}
	next, err := p.protocol()
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.engine.UpdateParams(c.caller.Address, next); err != nil {
		return nil, err
	}
	current, err := s.engine.Params()
	if err != nil {
		return nil, err
	}
	return paramsView(current), nil
}

func (s *Server) mint(c *call) (interface{}, error) {
	var p assetMoveParams
	if err := c.bind(&p); err != nil {
		return nil, err
	}
	to, amount, err := p.parse()
	if err != nil {
		return nil, err
	}
	if err := s.engine.Mint(c.caller.Address, to, p.Asset, amount); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) transfer(c *call) (interface{}, error) {
	var p assetMoveParams
	if err := c.bind(&p); err != nil {
		return nil, err
	}
	to, amount, err := p.parse()
	if err != nil {
		return nil, err
	}
	if err := s.engine.Transfer(c.caller.Address, to, p.Asset, amount); err != nil {
		return nil, err
	}
	return true, nil
}
