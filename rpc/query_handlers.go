package rpc

import (
	"errors"
	"math/big"
	"strings"

	"fusionswap/core/types"
	"fusionswap/crypto"
	"fusionswap/indexer"
)

const maxEventsPage = 1000

type balanceParams struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
}

type eventsParams struct {
	Since uint64 `json:"since"`
	Limit int    `json:"limit,omitempty"`
}

type listEventsParams struct {
	ObjectID string `json:"objectId,omitempty"`
	Type     string `json:"type,omitempty"`
	After    uint64 `json:"after,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type existsJSON struct {
	Exists bool   `json:"exists"`
	Kind   string `json:"kind,omitempty"`
}

type balanceJSON struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

type eventsJSON struct {
	Latest uint64         `json:"latest"`
	Events []types.Record `json:"events"`
}

func (p assetMoveParams) parse() ([20]byte, *big.Int, error) {
	to, err := crypto.ParseAddress(p.To)
	if err != nil {
		return to, nil, invalidParams(err)
	}
	amount, err := parseAmount(p.Amount, true)
	if err != nil {
		return to, nil, invalidParams(err)
	}
	return to, amount, nil
}

func (s *Server) exists(c *call) (interface{}, error) {
	id, err := c.bindID()
	if err != nil {
		return nil, err
	}
	kind, err := s.engine.Exists(id)
	if err != nil {
		return nil, err
	}
	return existsJSON{Exists: kind != "", Kind: kind}, nil
}

func (s *Server) balance(c *call) (interface{}, error) {
	var p balanceParams
	if err := c.bind(&p); err != nil {
		return nil, err
	}
	addr, err := crypto.ParseAddress(p.Address)
	if err != nil {
		return nil, invalidParams(err)
	}
	if strings.TrimSpace(p.Asset) == "" {
		return nil, invalidParams(errors.New("asset required"))
	}
	bal, err := s.engine.Balance(addr, p.Asset)
	if err != nil {
		return nil, err
	}
	return balanceJSON{Address: formatAddress(addr), Asset: strings.ToUpper(strings.TrimSpace(p.Asset)), Balance: formatAmount(bal)}, nil
}

func (s *Server) getParams(c *call) (interface{}, error) {
	p, err := s.engine.Params()
	if err != nil {
		return nil, err
	}
	return paramsView(p), nil
}

func (s *Server) resolvers(c *call) (interface{}, error) {
	list, err := s.engine.Resolvers()
	if err != nil {
		return nil, err
	}
	out := make([]resolverJSON, 0, len(list))
	for _, r := range list {
		out = append(out, resolverView(r))
	}
	return out, nil
}

func (s *Server) now(c *call) (interface{}, error) {
	return s.engine.Now(), nil
}

// recentEvents serves the bus backlog. Records older than the backlog are
// only available from the indexer.
func (s *Server) recentEvents(c *call) (interface{}, error) {
	var p eventsParams
	if err := c.bindOptional(&p); err != nil {
		return nil, err
	}
	limit := p.Limit
	if limit <= 0 || limit > maxEventsPage {
		limit = maxEventsPage
	}
	return eventsJSON{Latest: s.bus.Sequence(), Events: s.bus.Since(p.Since, limit)}, nil
}

func (s *Server) status(c *call) (interface{}, error) {
	if s.index == nil {
		return nil, errIndexerUnavailable
	}
	var p idParams
	if err := c.bind(&p); err != nil {
		return nil, err
	}
	if _, err := parseID(p.ID); err != nil {
		return nil, invalidParams(err)
	}
	return s.index.Status(c.ctx, p.ID)
}

func (s *Server) listEvents(c *call) (interface{}, error) {
	if s.index == nil {
		return nil, errIndexerUnavailable
	}
	var p listEventsParams
	if err := c.bindOptional(&p); err != nil {
		return nil, err
	}
	return s.index.ListEvents(c.ctx, indexer.Query{
		ObjectID: p.ObjectID,
		Type:     p.Type,
		After:    p.After,
		Limit:    p.Limit,
	})
}

func (s *Server) escrowsBySource(c *call) (interface{}, error) {
	if s.index == nil {
		return nil, errIndexerUnavailable
	}
	var p idParams
	if err := c.bind(&p); err != nil {
		return nil, err
	}
	if _, err := parseID(p.ID); err != nil {
		return nil, invalidParams(err)
	}
	return s.index.Escrows(c.ctx, p.ID)
}
