package bank

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

var (
	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
	// ErrInvalidAmount is returned for nil or negative amounts.
	ErrInvalidAmount = errors.New("bank: invalid amount")
	// ErrBalanceOverflow is returned when a credit would leave a balance that
	// no longer fits in 256 bits.
	ErrBalanceOverflow = errors.New("bank: balance overflow")
)

// State is the slice of the state transaction the ledger needs.
type State interface {
	Balance(addr []byte, asset string) (*big.Int, error)
	SetBalance(addr []byte, asset string, amount *big.Int) error
}

// Ledger moves fungible balances. All changes land in the transaction it was
// built on, so they commit or roll back with the surrounding operation.
type Ledger struct {
	state State
}

func NewLedger(state State) *Ledger {
	return &Ledger{state: state}
}

// NormalizeAsset upper-cases and trims an asset symbol.
func NormalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if _, overflow := uint256.FromBig(amount); overflow {
		return ErrBalanceOverflow
	}
	return nil
}

func (l *Ledger) Balance(addr [20]byte, asset string) (*big.Int, error) {
	asset = NormalizeAsset(asset)
	if asset == "" {
		return nil, fmt.Errorf("bank: asset required")
	}
	return l.state.Balance(addr[:], asset)
}

func (l *Ledger) Credit(addr [20]byte, asset string, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	current, err := l.Balance(addr, asset)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(uint256.MustFromBig(current), uint256.MustFromBig(amount))
	if overflow {
		return ErrBalanceOverflow
	}
	return l.state.SetBalance(addr[:], NormalizeAsset(asset), sum.ToBig())
}

func (l *Ledger) Debit(addr [20]byte, asset string, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	current, err := l.Balance(addr, asset)
	if err != nil {
		return err
	}
	if current.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s %s, need %s", ErrInsufficientFunds, current, NormalizeAsset(asset), amount)
	}
	return l.state.SetBalance(addr[:], NormalizeAsset(asset), new(big.Int).Sub(current, amount))
}

// Transfer debits from and credits to in one step.
func (l *Ledger) Transfer(from, to [20]byte, asset string, amount *big.Int) error {
	if err := l.Debit(from, asset, amount); err != nil {
		return err
	}
	return l.Credit(to, asset, amount)
}
