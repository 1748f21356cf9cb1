package escrow

import "errors"

// Error kinds. Detailed failures wrap one of these so callers can use
// errors.Is regardless of the message.
var (
	ErrInvalidAmount       = errors.New("escrow: invalid amount")
	ErrInvalidSecret       = errors.New("escrow: invalid secret")
	ErrInsufficientBalance = errors.New("escrow: insufficient balance")
	ErrInvalidCaller       = errors.New("escrow: invalid caller")
	ErrInvalidResolver     = errors.New("escrow: invalid resolver")
	ErrInvalidPhase        = errors.New("escrow: invalid phase")
	ErrObjectNotFound      = errors.New("escrow: object not found")
)

var errNotInitialised = errors.New("escrow engine: state not configured")

var kinds = []struct {
	err  error
	name string
}{
	{ErrInvalidAmount, "invalid_amount"},
	{ErrInvalidSecret, "invalid_secret"},
	{ErrInsufficientBalance, "insufficient_balance"},
	{ErrInvalidCaller, "invalid_caller"},
	{ErrInvalidResolver, "invalid_resolver"},
	{ErrInvalidPhase, "invalid_phase"},
	{ErrObjectNotFound, "not_found"},
}

// Kind returns a stable label for err, or "internal" when it is not one of
// the protocol error kinds.
func Kind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
