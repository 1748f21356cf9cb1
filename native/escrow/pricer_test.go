package escrow

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func schedule(start, end int64, startTime, decay, endTime uint64) AuctionSchedule {
	return AuctionSchedule{
		StartingAmount: big.NewInt(start),
		EndingAmount:   big.NewInt(end),
		StartTime:      startTime,
		DecayDuration:  decay,
		EndTime:        endTime,
	}
}

func TestCurrentAmountLinearMidpoint(t *testing.T) {
	s := schedule(100, 50, 1000, 120, 1120)
	require.NoError(t, s.Validate())
	require.Equal(t, int64(100), CurrentAmount(s, 900).Int64())
	require.Equal(t, int64(100), CurrentAmount(s, 1000).Int64())
	require.Equal(t, int64(75), CurrentAmount(s, 1060).Int64())
	require.Equal(t, int64(50), CurrentAmount(s, 1120).Int64())
	require.Equal(t, int64(50), CurrentAmount(s, 5000).Int64())
}

func TestCurrentAmountFloors(t *testing.T) {
	s := schedule(10, 1, 0, 3, 3)
	// (10*2 + 1*1) / 3 = 7
	require.Equal(t, int64(7), CurrentAmount(s, 1).Int64())
	// (10*1 + 1*2) / 3 = 4
	require.Equal(t, int64(4), CurrentAmount(s, 2).Int64())
}

func TestCurrentAmountNeverIncreases(t *testing.T) {
	s := schedule(1_000_003, 7, 100, 997, 2000)
	prev := CurrentAmount(s, 0)
	for now := uint64(0); now < 1200; now++ {
		cur := CurrentAmount(s, now)
		if cur.Cmp(prev) > 0 {
			t.Fatalf("price rose from %s to %s at %d", prev, cur, now)
		}
		require.True(t, cur.Cmp(s.EndingAmount) >= 0)
		require.True(t, cur.Cmp(s.StartingAmount) <= 0)
		prev = cur
	}
}

func TestCurrentAmountZeroDecay(t *testing.T) {
	s := schedule(100, 60, 10, 0, 20)
	require.Equal(t, int64(100), CurrentAmount(s, 10).Int64())
	require.Equal(t, int64(60), CurrentAmount(s, 11).Int64())
}

func TestCurrentAmountReturnsCopy(t *testing.T) {
	s := schedule(100, 50, 0, 10, 10)
	CurrentAmount(s, 0).SetInt64(1)
	require.Equal(t, int64(100), s.StartingAmount.Int64())
}

func TestScheduleValidate(t *testing.T) {
	cases := []AuctionSchedule{
		schedule(0, 0, 0, 10, 10),
		schedule(100, 0, 0, 10, 10),
		schedule(50, 100, 0, 10, 10),
		schedule(100, 50, 0, 10, 9),
		{StartingAmount: big.NewInt(1), EndingAmount: big.NewInt(1), StartTime: 10, DecayDuration: ^uint64(0), EndTime: ^uint64(0)},
	}
	for i, s := range cases {
		err := s.Validate()
		require.True(t, errors.Is(err, ErrInvalidAmount), "case %d: %v", i, err)
	}
	require.NoError(t, schedule(100, 100, 0, 0, 0).Validate())
}
