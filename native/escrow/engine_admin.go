package escrow

import (
	"errors"
	"fmt"
	"math/big"

	"fusionswap/core/events"
	"fusionswap/native/bank"
	"fusionswap/native/params"
	"fusionswap/native/registry"
)

func (t *txn) requireAdmin(caller [20]byte) (params.Params, error) {
	p, err := t.loadParams()
	if err != nil {
		return params.Params{}, err
	}
	if caller != p.Admin {
		return params.Params{}, fmt.Errorf("escrow: caller is not the admin: %w", ErrInvalidCaller)
	}
	return p, nil
}

// UpdateParams replaces the protocol parameters. Existing orders and escrows
// keep the deposit and durations they were created with.
func (e *Engine) UpdateParams(caller [20]byte, next params.Params) error {
	return e.update("update_params", func(t *txn) error {
		if _, err := t.requireAdmin(caller); err != nil {
			return err
		}
		next.Normalize()
		if err := next.Validate(); err != nil {
			return fmt.Errorf("%v: %w", err, ErrInvalidAmount)
		}
		if err := t.params.Set(next); err != nil {
			return err
		}
		t.emit(events.ParamsUpdated{
			Admin:               next.Admin,
			SafetyDepositAsset:  next.SafetyDepositAsset,
			SafetyDepositAmount: next.SafetyDepositAmount.String(),
			HashAlgorithm:       next.HashAlgorithm,
			Durations: [4]uint64{
				next.Durations.Finality,
				next.Durations.ExclusiveWithdrawal,
				next.Durations.PublicWithdrawal,
				next.Durations.PrivateCancellation,
			},
		})
		t.log("admin", addr(next.Admin), "asset", next.SafetyDepositAsset)
		return nil
	})
}

// RegisterResolver adds resolver to the allow-list.
func (e *Engine) RegisterResolver(caller, resolver [20]byte, label string) error {
	return e.update("register_resolver", func(t *txn) error {
		if _, err := t.requireAdmin(caller); err != nil {
			return err
		}
		rec, err := registry.New(t.st).Register(resolver, label, t.now)
		if err != nil {
			return fmt.Errorf("%v: %w", err, ErrInvalidResolver)
		}
		t.emit(events.ResolverChanged{Resolver: resolver, Label: rec.Label, Active: true})
		t.log("resolver", addr(resolver))
		return nil
	})
}

// DeregisterResolver removes resolver from the allow-list. Escrows it already
// holds are unaffected.
func (e *Engine) DeregisterResolver(caller, resolver [20]byte) error {
	return e.update("deregister_resolver", func(t *txn) error {
		if _, err := t.requireAdmin(caller); err != nil {
			return err
		}
		rec, err := registry.New(t.st).Deregister(resolver, t.now)
		if errors.Is(err, registry.ErrUnknownResolver) {
			return fmt.Errorf("escrow: resolver %s: %w", addr(resolver), ErrInvalidResolver)
		}
		if err != nil {
			return err
		}
		t.emit(events.ResolverChanged{Resolver: resolver, Label: rec.Label, Active: false})
		t.log("resolver", addr(resolver))
		return nil
	})
}

// Mint credits new balance to recipient. Admin only; used for faucets and
// test networks.
func (e *Engine) Mint(caller, recipient [20]byte, asset string, amount *big.Int) error {
	return e.update("mint", func(t *txn) error {
		if _, err := t.requireAdmin(caller); err != nil {
			return err
		}
		asset = bank.NormalizeAsset(asset)
		if asset == "" || amount == nil || amount.Sign() <= 0 {
			return fmt.Errorf("escrow: mint needs an asset and a positive amount: %w", ErrInvalidAmount)
		}
		if err := t.ledger.Credit(recipient, asset, amount); err != nil {
			return fmt.Errorf("%v: %w", err, ErrInvalidAmount)
		}
		t.emit(events.Mint{Asset: asset, Recipient: recipient, Amount: new(big.Int).Set(amount)})
		t.log("recipient", addr(recipient), "asset", asset, "amount", amount.String())
		return nil
	})
}

// Transfer moves the caller's own balance to another account.
func (e *Engine) Transfer(caller, to [20]byte, asset string, amount *big.Int) error {
	return e.update("transfer", func(t *txn) error {
		asset = bank.NormalizeAsset(asset)
		if asset == "" || amount == nil || amount.Sign() <= 0 {
			return fmt.Errorf("escrow: transfer needs an asset and a positive amount: %w", ErrInvalidAmount)
		}
		if err := t.move(caller, to, asset, amount); err != nil {
			return err
		}
		t.emit(events.Transfer{Asset: asset, From: caller, To: to, Amount: new(big.Int).Set(amount)})
		t.log("from", addr(caller), "to", addr(to), "asset", asset)
		return nil
	})
}
