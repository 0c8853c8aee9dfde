package tokens

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"liquidityCurve/internal/model"
)

var (
	tokenA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob    = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func TestTransferIsAtomic(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Mint(tokenA, alice, big.NewInt(100)))

	err := l.Transfer(context.Background(), []model.Transfer{
		{Token: tokenA, From: alice, To: bob, Amount: big.NewInt(60)},
		{Token: tokenA, From: alice, To: bob, Amount: big.NewInt(60)},
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, big.NewInt(100), l.BalanceOf(tokenA, alice))
	require.Zero(t, l.BalanceOf(tokenA, bob).Sign())

	require.NoError(t, l.Transfer(context.Background(), []model.Transfer{
		{Token: tokenA, From: alice, To: bob, Amount: big.NewInt(60)},
		{Token: tokenA, From: bob, To: alice, Amount: big.NewInt(10)},
	}))
	require.Equal(t, big.NewInt(50), l.BalanceOf(tokenA, alice))
	require.Equal(t, big.NewInt(50), l.BalanceOf(tokenA, bob))
}

func TestRejectsInvalidAmounts(t *testing.T) {
	l := NewLedger()
	require.ErrorIs(t, l.Mint(tokenA, alice, big.NewInt(-1)), ErrInvalidAmount)
	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	require.ErrorIs(t, l.Mint(tokenA, alice, huge), ErrInvalidAmount)

	err := l.Transfer(context.Background(), []model.Transfer{{Token: tokenA, From: alice, To: bob, Amount: nil}})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestTransferHonorsContext(t *testing.T) {
	l := NewLedger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, l.Transfer(ctx, nil), context.Canceled)
}

func TestBalancesRoundTrip(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Mint(tokenA, bob, big.NewInt(7)))
	require.NoError(t, l.Mint(tokenA, alice, big.NewInt(5)))
	require.NoError(t, l.Transfer(context.Background(), []model.Transfer{
		{Token: tokenA, From: bob, To: alice, Amount: big.NewInt(7)},
	}))

	got := l.Balances()
	require.Len(t, got, 1)
	require.Equal(t, alice, got[0].Owner)
	require.Equal(t, "12", got[0].Amount.String())

	restored, err := Restore(got)
	require.NoError(t, err)
	require.Equal(t, "12", restored.BalanceOf(tokenA, alice).String())
	require.Zero(t, restored.BalanceOf(tokenA, bob).Sign())
}
