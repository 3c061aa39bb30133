package pricing

import (
	"testing"

	"github.com/dog52841/Rentify-sub001/internal/domain/shared/money"
)

func TestQuoteDefault(t *testing.T) {
	rate := money.Must(5000, "USD")

	got, err := QuoteDefault(3, rate)
	if err != nil {
		t.Fatalf("QuoteDefault: %v", err)
	}
	if got.Subtotal.Amount != 15000 {
		t.Fatalf("subtotal = %d, want 15000", got.Subtotal.Amount)
	}
	if got.RenterFee.Amount != 1050 {
		t.Fatalf("renter fee = %d, want 1050", got.RenterFee.Amount)
	}
	if got.ListerFee.Amount != 450 {
		t.Fatalf("lister fee = %d, want 450", got.ListerFee.Amount)
	}
	if got.Total.Amount != 16050 {
		t.Fatalf("total = %d, want 16050", got.Total.Amount)
	}
	if got.ListerPayout.Amount != 14550 {
		t.Fatalf("payout = %d, want 14550", got.ListerPayout.Amount)
	}
}

func TestQuoteRoundsHalfUpOnce(t *testing.T) {
	cases := []struct {
		name      string
		days      int
		rateCents int64
		renterFee int64
		listerFee int64
	}{
		// 7% of 107 = 7.49 -> 7; 3% of 107 = 3.21 -> 3
		{"rounds down below half", 1, 107, 7, 3},
		// 7% of 150 = 10.50 -> 11 (half up); 3% of 150 = 4.50 -> 5
		{"rounds half up", 1, 150, 11, 5},
		// 7% of 99 = 6.93 -> 7; 3% of 99 = 2.97 -> 3
		{"rounds up above half", 1, 99, 7, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := QuoteDefault(tc.days, money.Must(tc.rateCents, "USD"))
			if err != nil {
				t.Fatalf("QuoteDefault: %v", err)
			}
			if got.RenterFee.Amount != tc.renterFee {
				t.Fatalf("renter fee = %d, want %d", got.RenterFee.Amount, tc.renterFee)
			}
			if got.ListerFee.Amount != tc.listerFee {
				t.Fatalf("lister fee = %d, want %d", got.ListerFee.Amount, tc.listerFee)
			}
			if got.Total.Amount != got.Subtotal.Amount+got.RenterFee.Amount {
				t.Fatalf("total %d != subtotal %d + renter fee %d", got.Total.Amount, got.Subtotal.Amount, got.RenterFee.Amount)
			}
			if got.ListerPayout.Amount != got.Subtotal.Amount-got.ListerFee.Amount {
				t.Fatalf("payout %d != subtotal %d - lister fee %d", got.ListerPayout.Amount, got.Subtotal.Amount, got.ListerFee.Amount)
			}
		})
	}
}

func TestQuoteRejectsBadInput(t *testing.T) {
	if _, err := QuoteDefault(0, money.Must(5000, "USD")); err == nil {
		t.Fatal("expected error for zero days")
	}
	if _, err := QuoteDefault(-1, money.Must(5000, "USD")); err == nil {
		t.Fatal("expected error for negative days")
	}
	if _, err := QuoteDefault(2, money.Money{Amount: 0, Currency: "USD"}); err == nil {
		t.Fatal("expected error for zero rate")
	}
}
