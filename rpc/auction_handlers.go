package rpc

import (
	"fusionswap/native/escrow"
)

type createAuctionParams struct {
	Asset              string         `json:"asset"`
	StartingAmount     string         `json:"startingAmount"`
	EndingAmount       string         `json:"endingAmount"`
	StartTime          uint64         `json:"startTime,omitempty"`
	DecayDuration      uint64         `json:"decayDuration"`
	EndTime            uint64         `json:"endTime,omitempty"`
	SafetyDeposit      *string        `json:"safetyDeposit,omitempty"`
	DestinationChainID uint64         `json:"destinationChainId"`
	HashLocks          []string       `json:"hashlocks"`
	Whitelist          []string       `json:"whitelist,omitempty"`
	AutoCancelAfter    uint64         `json:"autoCancelAfter,omitempty"`
	Durations          *durationsJSON `json:"durations,omitempty"`
}

type priceJSON struct {
	Price     string `json:"price"`
	Remaining string `json:"remaining"`
	Now       uint64 `json:"now"`
}

func (s *Server) createAuction(c *call) (interface{}, error) {
	var p createAuctionParams
	if err := c.bind(&p); err != nil {
		return nil, err
	}
	starting, err := parseAmount(p.StartingAmount, true)
	if err != nil {
		return nil, invalidParams(err)
	}
	ending, err := parseAmount(p.EndingAmount, true)
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
	auction, err := s.engine.CreateAuction(c.caller.Address, escrow.AuctionRequest{
		Asset:              p.Asset,
		StartingAmount:     starting,
		EndingAmount:       ending,
		StartTime:          p.StartTime,
		DecayDuration:      p.DecayDuration,
		EndTime:            p.EndTime,
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
	return auctionView(auction), nil
}

func (s *Server) cancelAuction(c *call) (interface{}, error) {
	id, err := c.bindID()
	if err != nil {
		return nil, err
	}
	if err := s.engine.CancelAuction(c.caller.Address, id); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) expireAuction(c *call) (interface{}, error) {
	id, err := c.bindID()
	if err != nil {
		return nil, err
	}
	if err := s.engine.ExpireAuction(c.caller.Address, id); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) fillAuction(c *call) (interface{}, error) {
	var p fillParams
	if err := c.bind(&p); err != nil {
		return nil, err
	}
	id, req, err := p.request()
	if err != nil {
		return nil, err
	}
	esc, err := s.engine.FillAuction(c.caller.Address, id, req)
	if err != nil {
		return nil, err
	}
	return escrowView(esc), nil
}

func (s *Server) getAuction(c *call) (interface{}, error) {
	id, err := c.bindID()
	if err != nil {
		return nil, err
	}
	auction, err := s.engine.Auction(id)
	if err != nil {
		return nil, err
	}
	return auctionView(auction), nil
}

func (s *Server) auctionPrice(c *call) (interface{}, error) {
	id, err := c.bindID()
	if err != nil {
		return nil, err
	}
	price, remaining, err := s.engine.AuctionPrice(id)
	if err != nil {
		return nil, err
	}
	return priceJSON{Price: formatAmount(price), Remaining: formatAmount(remaining), Now: s.engine.Now()}, nil
}
