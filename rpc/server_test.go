package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"fusionswap/core/events"
	"fusionswap/core/genesis"
	"fusionswap/core/state"
	"fusionswap/core/types"
	"fusionswap/crypto"
	"fusionswap/indexer"
	"fusionswap/native/escrow"
	"fusionswap/native/params"
	"fusionswap/rpc/auth"
	"fusionswap/storage"
)

const (
	testSecret = "rpc-test-secret"
	testIssuer = "fusion-tests"
	startTime  = int64(1_700_000_000)
)

type testEnv struct {
	t        *testing.T
	engine   *escrow.Engine
	bus      *events.Bus
	server   *Server
	http     *httptest.Server
	now      atomic.Int64
	admin    string
	owner    string
	resolver string
	stranger string
}

func address(b byte) string {
	var raw [20]byte
	raw[0] = b
	raw[19] = b
	return crypto.FromRaw(raw).String()
}

type envOption func(*Config, *Deps)

func withIndex(ix EventIndex) envOption {
	return func(_ *Config, d *Deps) { d.Index = ix }
}

func withBurst(rps float64, burst int) envOption {
	return func(c *Config, _ *Deps) {
		c.RateLimitRPS = rps
		c.RateLimitBurst = burst
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	env := &testEnv{
		t:        t,
		admin:    address(0xA0),
		owner:    address(0x01),
		resolver: address(0x02),
		stranger: address(0x04),
	}
	env.now.Store(startTime)

	mgr := state.NewManager(storage.NewMemDB())
	spec := &genesis.Spec{
		Admin: env.admin,
		Params: genesis.ParamsSpec{
			SafetyDepositAsset:  "FSN",
			SafetyDepositAmount: "1000",
			Durations: params.Durations{
				Finality:            10,
				ExclusiveWithdrawal: 20,
				PublicWithdrawal:    30,
				PrivateCancellation: 40,
			},
		},
		Resolvers: []genesis.ResolverSpec{{Address: env.resolver, Label: "primary"}},
		Alloc: map[string]map[string]string{
			env.owner:    {"USDC": "1000000", "FSN": "100000"},
			env.resolver: {"USDC": "1000000", "FSN": "100000"},
			env.stranger: {"USDC": "1000000", "FSN": "100000"},
		},
	}
	require.NoError(t, genesis.Apply(mgr, spec, uint64(startTime)))

	env.bus = events.NewBus(128, 0)
	env.engine = escrow.NewEngine(mgr)
	env.engine.SetNowFunc(func() int64 { return env.now.Load() })
	env.engine.SetEmitter(env.bus)

	verifier, err := auth.NewVerifier(auth.Config{Secret: testSecret, Issuer: testIssuer})
	require.NoError(t, err)

	cfg := Config{RateLimitRPS: 1000, RateLimitBurst: 1000}
	deps := Deps{Engine: env.engine, Bus: env.bus, Verifier: verifier}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}
	env.server, err = NewServer(cfg, deps)
	require.NoError(t, err)
	env.http = httptest.NewServer(env.server.Handler())
	t.Cleanup(env.http.Close)
	return env
}

func (e *testEnv) advance(seconds int64) { e.now.Add(seconds) }

func (e *testEnv) token(subject string) string {
	e.t.Helper()
	tok, err := auth.SignToken(testSecret, testIssuer, subject, time.Hour, time.Now())
	require.NoError(e.t, err)
	return tok
}

// call posts one JSON-RPC request. as is the acting address, or "" for an
// anonymous call.
func (e *testEnv) call(as, method string, param interface{}) (*http.Response, RPCResponse) {
	e.t.Helper()
	req := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if param != nil {
		req["params"] = []interface{}{param}
	}
	body, err := json.Marshal(req)
	require.NoError(e.t, err)
	httpReq, err := http.NewRequest(http.MethodPost, e.http.URL+"/", bytes.NewReader(body))
	require.NoError(e.t, err)
	httpReq.Header.Set("Content-Type", "application/json")
	if as != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.token(as))
	}
	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	var out RPCResponse
	require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

// ok calls method and decodes its result into dst.
func (e *testEnv) ok(as, method string, param, dst interface{}) {
	e.t.Helper()
	_, resp := e.call(as, method, param)
	if resp.Error != nil {
		e.t.Fatalf("%s: unexpected error %d %s (%v)", method, resp.Error.Code, resp.Error.Message, resp.Error.Data)
	}
	if dst == nil {
		return
	}
	raw, err := json.Marshal(resp.Result)
	require.NoError(e.t, err)
	require.NoError(e.t, json.Unmarshal(raw, dst))
}

func (e *testEnv) fail(as, method string, param interface{}, code, status int) *RPCError {
	e.t.Helper()
	httpResp, resp := e.call(as, method, param)
	if resp.Error == nil {
		e.t.Fatalf("%s: expected error code %d", method, code)
	}
	if resp.Error.Code != code {
		e.t.Fatalf("%s: expected code %d got %d (%s)", method, code, resp.Error.Code, resp.Error.Message)
	}
	require.Equal(e.t, status, httpResp.StatusCode)
	return resp.Error
}

func (e *testEnv) balance(addr, asset string) string {
	var out balanceJSON
	e.ok("", "fusion_balance", map[string]string{"address": addr, "asset": asset}, &out)
	return out.Balance
}

func hashlock(secret string) string {
	d := escrow.HashSecret(escrow.HashSHA3256, []byte(secret))
	return "0x" + hex.EncodeToString(d[:])
}

func (e *testEnv) createOrder(amount string, secrets ...string) orderJSON {
	locks := make([]string, 0, len(secrets))
	for _, s := range secrets {
		locks = append(locks, hashlock(s))
	}
	var order orderJSON
	e.ok(e.owner, "fusion_createOrder", map[string]interface{}{
		"asset":              "usdc",
		"amount":             amount,
		"destinationChainId": 8453,
		"hashlocks":          locks,
		"whitelist":          []string{e.resolver},
	}, &order)
	return order
}

func TestOrderSwapOverRPC(t *testing.T) {
	env := newTestEnv(t)
	order := env.createOrder("5000", "secret")
	require.Equal(t, "USDC", order.Asset)
	require.Equal(t, "5000", order.Remaining)
	require.Equal(t, env.owner, order.Owner)
	require.Equal(t, "995000", env.balance(env.owner, "USDC"))

	var esc escrowJSON
	env.ok(env.resolver, "fusion_acceptOrder", map[string]string{"id": order.ID}, &esc)
	require.Equal(t, "5000", esc.Amount)
	require.Equal(t, order.ID, esc.SourceID)
	require.Equal(t, env.resolver, esc.To)

	var phase phaseJSON
	env.ok("", "fusion_escrowPhase", map[string]string{"id": esc.ID}, &phase)
	require.Equal(t, "finality", phase.Phase)
	require.NotNil(t, phase.NextAt)
	require.Equal(t, uint64(startTime+10), *phase.NextAt)

	env.advance(10)
	env.fail(env.resolver, "fusion_withdraw", map[string]string{"id": esc.ID, "secret": "0x" + hex.EncodeToString([]byte("wrong"))}, codeInvalidSecret, http.StatusBadRequest)
	env.fail(env.stranger, "fusion_withdraw", map[string]string{"id": esc.ID, "secret": "0x" + hex.EncodeToString([]byte("secret"))}, codeInvalidCaller, http.StatusForbidden)
	env.ok(env.resolver, "fusion_withdraw", map[string]string{"id": esc.ID, "secret": "0x" + hex.EncodeToString([]byte("secret"))}, nil)
	require.Equal(t, "1005000", env.balance(env.resolver, "USDC"))

	var exists existsJSON
	env.ok("", "fusion_exists", map[string]string{"id": esc.ID}, &exists)
	require.False(t, exists.Exists)

	var page eventsJSON
	env.ok("", "fusion_events", map[string]interface{}{"since": 0}, &page)
	require.NotEmpty(t, page.Events)
	last := page.Events[len(page.Events)-1]
	require.Equal(t, escrow.EventTypeEscrowWithdrawn, last.Type)
	require.Equal(t, "0x736563726574", last.Attrs["secret"])
	require.Equal(t, last.Sequence, page.Latest)
}

func TestCancelAndRecoverOverRPC(t *testing.T) {
	env := newTestEnv(t)
	order := env.createOrder("100", "s")
	env.fail(env.stranger, "fusion_cancelOrder", map[string]string{"id": order.ID}, codeInvalidCaller, http.StatusForbidden)
	env.ok(env.owner, "fusion_cancelOrder", map[string]string{"id": order.ID}, nil)
	env.fail("", "fusion_getOrder", map[string]string{"id": order.ID}, codeNotFound, http.StatusNotFound)
	require.Equal(t, "1000000", env.balance(env.owner, "USDC"))

	order = env.createOrder("100", "s")
	var esc escrowJSON
	env.ok(env.resolver, "fusion_acceptOrder", map[string]string{"id": order.ID}, &esc)
	env.fail(env.owner, "fusion_recover", map[string]string{"id": esc.ID}, codeInvalidPhase, http.StatusConflict)
	env.advance(100)
	env.ok(env.stranger, "fusion_recover", map[string]string{"id": esc.ID}, nil)
	require.Equal(t, "1000000", env.balance(env.owner, "USDC"))
}

func TestAuctionOverRPC(t *testing.T) {
	env := newTestEnv(t)
	var auction auctionJSON
	env.ok(env.owner, "fusion_createAuction", map[string]interface{}{
		"asset":              "USDC",
		"startingAmount":     "1000",
		"endingAmount":       "500",
		"decayDuration":      100,
		"destinationChainId": 1,
		"hashlocks":          []string{hashlock("a")},
	}, &auction)
	require.Equal(t, uint64(startTime+100), auction.EndTime)
	require.Equal(t, uint64(startTime+101), auction.Deadline)

	env.advance(50)
	var price priceJSON
	env.ok("", "fusion_auctionPrice", map[string]string{"id": auction.ID}, &price)
	require.Equal(t, "750", price.Price)
	require.Equal(t, "1000", price.Remaining)

	var esc escrowJSON
	env.ok(env.resolver, "fusion_fillAuction", map[string]string{"id": auction.ID}, &esc)
	require.Equal(t, "750", esc.Amount)
	require.Equal(t, "999250", env.balance(env.owner, "USDC"))
}

func TestResolverEscrowOverRPC(t *testing.T) {
	env := newTestEnv(t)
	var esc escrowJSON
	env.ok(env.resolver, "fusion_createEscrow", map[string]interface{}{
		"recipient": env.owner,
		"asset":     "USDC",
		"amount":    "42",
		"chainId":   10,
		"hashlock":  hashlock("dst"),
	}, &esc)
	require.Equal(t, env.resolver, esc.From)
	require.Equal(t, env.owner, esc.To)
	require.Empty(t, esc.SourceID)

	env.fail(env.resolver, "fusion_createEscrow", map[string]interface{}{
		"recipient": env.owner, "asset": "USDC", "amount": "42", "chainId": 10, "hashlock": "0x1234",
	}, codeInvalidSecret, http.StatusBadRequest)
}

func TestAdminOverRPC(t *testing.T) {
	env := newTestEnv(t)
	env.fail(env.owner, "fusion_registerResolver", map[string]string{"resolver": env.stranger}, codeInvalidCaller, http.StatusForbidden)
	env.ok(env.admin, "fusion_registerResolver", map[string]string{"resolver": env.stranger, "label": "second"}, nil)

	var list []resolverJSON
	env.ok("", "fusion_resolvers", nil, &list)
	require.Len(t, list, 2)

	env.ok(env.admin, "fusion_deregisterResolver", map[string]string{"resolver": env.stranger}, nil)
	env.fail(env.admin, "fusion_deregisterResolver", map[string]string{"resolver": address(0x77)}, codeInvalidResolver, http.StatusForbidden)

	var p paramsJSON
	env.ok("", "fusion_params", nil, &p)
	require.Equal(t, "sha3-256", p.HashAlgorithm)
	p.HashAlgorithm = "blake3"
	p.Durations.Finality = 5
	var updated paramsJSON
	env.ok(env.admin, "fusion_updateParams", p, &updated)
	require.Equal(t, "blake3", updated.HashAlgorithm)
	require.Equal(t, uint64(5), updated.Durations.Finality)

	env.ok(env.admin, "fusion_mint", map[string]string{"to": env.stranger, "asset": "DAI", "amount": "9"}, nil)
	env.ok(env.stranger, "fusion_transfer", map[string]string{"to": env.owner, "asset": "DAI", "amount": "4"}, nil)
	require.Equal(t, "5", env.balance(env.stranger, "DAI"))
	require.Equal(t, "4", env.balance(env.owner, "DAI"))
	env.fail(env.stranger, "fusion_transfer", map[string]string{"to": env.owner, "asset": "DAI", "amount": "6"}, codeInsufficientBalance, http.StatusBadRequest)
}

func TestRequestErrors(t *testing.T) {
	env := newTestEnv(t)
	err := env.fail("", "fusion_createOrder", map[string]string{"asset": "USDC"}, codeUnauthorized, http.StatusUnauthorized)
	require.Equal(t, "unauthorized", err.Message)

	env.fail("", "fusion_nope", nil, codeMethodNotFound, http.StatusNotFound)
	env.fail(env.owner, "fusion_createOrder", map[string]interface{}{"asset": "USDC", "amount": "-5", "hashlocks": []string{hashlock("x")}}, codeInvalidParams, http.StatusBadRequest)
	env.fail(env.owner, "fusion_createOrder", map[string]interface{}{"asset": "USDC", "amount": "5", "colour": "red"}, codeInvalidParams, http.StatusBadRequest)
	env.fail("", "fusion_getEscrow", map[string]string{"id": "0x12"}, codeInvalidParams, http.StatusBadRequest)
	env.fail("", "fusion_status", map[string]string{"id": "0x" + strings.Repeat("00", 32)}, codeUnavailable, http.StatusServiceUnavailable)

	resp, err2 := http.Post(env.http.URL+"/", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err2)
	defer resp.Body.Close()
	var out RPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, codeParseError, out.Error.Code)
}

func TestBadTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)
	req, err := http.NewRequest(http.MethodPost, env.http.URL+"/", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"fusion_cancelOrder","params":[{"id":"0x00"}]}`))
	require.NoError(t, err)
	forged, err := auth.SignToken("not-the-secret", testIssuer, env.owner, time.Hour, time.Now())
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+forged)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIndexerMethods(t *testing.T) {
	db, err := indexer.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	ix, err := indexer.New(db, nil)
	require.NoError(t, err)
	env := newTestEnv(t, withIndex(ix))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ix.Run(ctx, env.bus) }()
	defer func() {
		cancel()
		<-done
	}()

	order := env.createOrder("300", "a", "b", "c")
	var esc escrowJSON
	env.ok(env.resolver, "fusion_acceptOrder", map[string]interface{}{"id": order.ID, "amount": "100", "fillIndex": 0}, &esc)

	require.Eventually(t, func() bool {
		last, err := ix.LastSequence(context.Background())
		return err == nil && last == env.bus.Sequence()
	}, 2*time.Second, 10*time.Millisecond)

	var obj indexer.Object
	env.ok("", "fusion_status", map[string]string{"id": order.ID}, &obj)
	require.Equal(t, indexer.StatusOpen, obj.Status)
	require.Equal(t, "100", obj.Filled)

	var list []indexer.Event
	env.ok("", "fusion_listEvents", map[string]string{"objectId": esc.ID}, &list)
	require.Len(t, list, 1)
	require.Equal(t, escrow.EventTypeEscrowCreated, list[0].Type)

	var escrows []indexer.Object
	env.ok("", "fusion_escrowsBySource", map[string]string{"id": order.ID}, &escrows)
	require.Len(t, escrows, 1)
	require.Equal(t, esc.ID, escrows[0].ID)

	env.fail("", "fusion_status", map[string]string{"id": "0x" + strings.Repeat("ab", 32)}, codeNotFound, http.StatusNotFound)
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t)
	first := env.createOrder("10", "x")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws/events?since=0&type=order."
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() types.Record {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var rec types.Record
		require.NoError(t, json.Unmarshal(data, &rec))
		return rec
	}
	backlog := read()
	require.Equal(t, escrow.EventTypeOrderCreated, backlog.Type)
	require.Equal(t, first.ID, backlog.Attrs["orderId"])

	env.ok(env.owner, "fusion_cancelOrder", map[string]string{"id": first.ID}, nil)
	live := read()
	require.Equal(t, escrow.EventTypeOrderCancelled, live.Type)
	require.Greater(t, live.Sequence, backlog.Sequence)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.http.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	env.ok("", "fusion_params", nil, nil)
	resp, err = http.Get(env.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "fusion_rpc_requests_total")
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, withBurst(0.001, 1))
	env.ok("", "fusion_time", nil, nil)
	resp, err := http.Post(env.http.URL+"/", "application/json", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"fusion_time"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
