package escrow

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckpointIndex(t *testing.T) {
	total := big.NewInt(1000)
	cases := []struct {
		cumulative int64
		parts      int
		want       uint32
	}{
		{1, 4, 0},
		{250, 4, 0},
		{251, 4, 1},
		{500, 4, 1},
		{999, 4, 3},
		{1000, 4, 3},
		{1000, 1, 0},
		{1, 1, 0},
	}
	for _, tc := range cases {
		got, err := CheckpointIndex(total, big.NewInt(tc.cumulative), tc.parts)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "cumulative=%d parts=%d", tc.cumulative, tc.parts)
	}

	_, err := CheckpointIndex(total, big.NewInt(0), 4)
	require.True(t, errors.Is(err, ErrInvalidAmount))
	_, err = CheckpointIndex(total, big.NewInt(1001), 4)
	require.True(t, errors.Is(err, ErrInvalidAmount))
	_, err = CheckpointIndex(total, big.NewInt(10), 0)
	require.True(t, errors.Is(err, ErrInvalidSecret))
}

func segmentTerms(amount int64, parts int) *Terms {
	locks := make([]HashLock, parts)
	return &Terms{
		Amount:          big.NewInt(amount),
		Filled:          big.NewInt(0),
		SafetyDeposit:   big.NewInt(400),
		DepositReleased: big.NewInt(0),
		HashLocks:       locks,
	}
}

func TestPlanFillRejectsReusedCheckpoint(t *testing.T) {
	terms := segmentTerms(1000, 4)
	plan, err := planFill(terms, big.NewInt(300), nil)
	require.NoError(t, err)
	require.Equal(t, uint32(1), plan.index)
	terms.Filled = plan.amount
	terms.FillsUsed = plan.index + 1

	// cumulative 450 still lands on checkpoint 1
	_, err = planFill(terms, big.NewInt(150), nil)
	require.True(t, errors.Is(err, ErrInvalidAmount))

	plan, err = planFill(terms, big.NewInt(250), nil)
	require.NoError(t, err)
	require.Equal(t, uint32(2), plan.index)
	require.False(t, plan.complete)
}

func TestPlanFillRequestedIndex(t *testing.T) {
	terms := segmentTerms(1000, 4)
	idx := uint32(2)
	_, err := planFill(terms, big.NewInt(100), &idx)
	require.True(t, errors.Is(err, ErrInvalidSecret))

	plan, err := planFill(terms, big.NewInt(600), &idx)
	require.NoError(t, err)
	require.Equal(t, idx, plan.index)
}

func TestPlanFillBounds(t *testing.T) {
	terms := segmentTerms(1000, 1)
	_, err := planFill(terms, big.NewInt(500), nil)
	require.True(t, errors.Is(err, ErrInvalidAmount))

	plan, err := planFill(terms, nil, nil)
	require.NoError(t, err)
	require.True(t, plan.complete)
	require.Equal(t, int64(1000), plan.amount.Int64())

	_, err = planFill(segmentTerms(1000, 4), big.NewInt(1001), nil)
	require.True(t, errors.Is(err, ErrInvalidAmount))
	_, err = planFill(segmentTerms(1000, 4), big.NewInt(0), nil)
	require.True(t, errors.Is(err, ErrInvalidAmount))
}

func TestDepositShareSumsToDeposit(t *testing.T) {
	terms := segmentTerms(1000, 4)
	total := big.NewInt(0)
	for _, amt := range []int64{333, 333, 334} {
		plan, err := planFill(terms, big.NewInt(amt), nil)
		require.NoError(t, err)
		share := depositShare(terms, plan)
		total.Add(total, share)
		terms.Filled = new(big.Int).Add(terms.Filled, plan.amount)
		terms.DepositReleased = new(big.Int).Add(terms.DepositReleased, share)
		terms.FillsUsed = plan.index + 1
	}
	require.Equal(t, int64(400), total.Int64())
	require.Equal(t, 0, terms.Remaining().Sign())
}
