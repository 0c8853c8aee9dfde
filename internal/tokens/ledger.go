// Package tokens is an in-memory multi-token ledger used as the host
// transfer capability during replay and in tests.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityCurve/internal/model"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
)

type account struct {
	token common.Address
	owner common.Address
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	balances map[account]*uint256.Int
}

// Balance is one non-zero ledger entry.
type Balance struct {
	Token  common.Address `json:"token"`
	Owner  common.Address `json:"owner"`
	Amount *big.Int       `json:"amount"`
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[account]*uint256.Int)}
}

func toUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, v)
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("%w: %s overflows 256 bits", ErrInvalidAmount, v)
	}
	return u, nil
}

// Mint credits amount of token to owner.
func (l *Ledger) Mint(token, owner common.Address, amount *big.Int) error {
	u, err := toUint256(amount)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := account{token: token, owner: owner}
	cur := l.balance(key)
	sum, overflow := new(uint256.Int).AddOverflow(cur, u)
	if overflow {
		return fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
	}
	l.balances[key] = sum
	return nil
}

// BalanceOf returns owner's balance of token.
func (l *Ledger) BalanceOf(token, owner common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance(account{token: token, owner: owner}).ToBig()
}

func (l *Ledger) balance(key account) *uint256.Int {
	if b, ok := l.balances[key]; ok {
		return b
	}
	return new(uint256.Int)
}

// Transfer applies every transfer or none of them.
func (l *Ledger) Transfer(ctx context.Context, transfers []model.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	staged := make(map[account]*uint256.Int)
	get := func(key account) *uint256.Int {
		if b, ok := staged[key]; ok {
			return b
		}
		return new(uint256.Int).Set(l.balance(key))
	}
	for i, t := range transfers {
		amount, err := toUint256(t.Amount)
		if err != nil {
			return fmt.Errorf("transfer %d: %w", i, err)
		}
		from := account{token: t.Token, owner: t.From}
		to := account{token: t.Token, owner: t.To}

		fb := get(from)
		if fb.Lt(amount) {
			return fmt.Errorf("%w: %s holds %s of %s, needs %s", ErrInsufficientFunds, t.From.Hex(), fb.ToBig(), t.Token.Hex(), amount.ToBig())
		}
		staged[from] = new(uint256.Int).Sub(fb, amount)

		tb := get(to)
		sum, overflow := new(uint256.Int).AddOverflow(tb, amount)
		if overflow {
			return fmt.Errorf("transfer %d: %w: balance overflow", i, ErrInvalidAmount)
		}
		staged[to] = sum
	}
	for key, v := range staged {
		l.balances[key] = v
	}
	return nil
}

// Balances lists every non-zero balance ordered by token, then owner.
func (l *Ledger) Balances() []Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Balance, 0, len(l.balances))
	for key, v := range l.balances {
		if v.IsZero() {
			continue
		}
		out = append(out, Balance{Token: key.token, Owner: key.owner, Amount: v.ToBig()})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Token.Cmp(out[j].Token); c != 0 {
			return c < 0
		}
		return out[i].Owner.Cmp(out[j].Owner) < 0
	})
	return out
}

// Restore builds a ledger holding the given balances.
func Restore(balances []Balance) (*Ledger, error) {
	l := NewLedger()
	for _, b := range balances {
		if err := l.Mint(b.Token, b.Owner, b.Amount); err != nil {
			return nil, fmt.Errorf("restore %s/%s: %w", b.Token.Hex(), b.Owner.Hex(), err)
		}
	}
	return l, nil
}
