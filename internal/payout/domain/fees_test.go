package domain_test

import (
	"testing"

	payoutdomain "github.com/campustix/campustix/internal/payout/domain"
)

func TestNetRevenueClampsAtZero(t *testing.T) {
	cases := []struct {
		total  int64
		charge int64
		want   int64
	}{
		{10000, 1000, 9000},
		{1000, 1000, 0},
		{500, 1000, 0},
		{0, 1000, 0},
		{10000, 0, 10000},
	}
	for _, tc := range cases {
		if got := payoutdomain.NetRevenue(tc.total, tc.charge); got != tc.want {
			t.Fatalf("NetRevenue(%d, %d) = %d, want %d", tc.total, tc.charge, got, tc.want)
		}
	}
}
