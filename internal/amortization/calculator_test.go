package amortization

import (
	"errors"
	"finance_planner/internal/domain"
	"math"
	"testing"
)

func mustLoan(t *testing.T, principal, rate float64, term int) domain.LoanParameters {
	t.Helper()
	p, err := domain.NewLoanParameters(principal, rate, term)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func TestMonthlyPayment_ZeroRateIsExactSplit(t *testing.T) {
	p := mustLoan(t, 1000, 0, 3)

	got, err := MonthlyPayment(p)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1000.0/3 {
		t.Errorf("expected %v, got %v", 1000.0/3, got)
	}
}

func TestMonthlyPayment_ReferenceLoan(t *testing.T) {
	p := mustLoan(t, 2400000000, 8.5, 240)

	got, err := MonthlyPayment(p)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Independently computed: 20,827,757.600772817.
	if math.Abs(got-20827757.60) > 1 {
		t.Errorf("expected about 20,827,757.60, got %.2f", got)
	}
}

func TestMonthlyPayment_InvalidParameters(t *testing.T) {
	cases := []domain.LoanParameters{
		{Principal: 0, AnnualRatePercent: 5, TermMonths: 12},
		{Principal: 1000, AnnualRatePercent: -1, TermMonths: 12},
		{Principal: 1000, AnnualRatePercent: 5, TermMonths: 0},
		{Principal: 1000, AnnualRatePercent: math.Inf(1), TermMonths: 12},
	}
	for _, p := range cases {
		if _, err := MonthlyPayment(p); !errors.Is(err, domain.ErrInvalidParameter) {
			t.Errorf("%+v: expected ErrInvalidParameter, got %v", p, err)
		}
	}
}

func TestCompute_ScheduleClosesAtZero(t *testing.T) {
	cases := []struct {
		principal float64
		rate      float64
		term      int
	}{
		{2400000000, 8.5, 240},
		{150000, 3.25, 360},
		{1000, 0, 7},
		{5000, 24, 1},
		{987654.32, 12.75, 61},
	}
	for _, tc := range cases {
		res, err := Compute(mustLoan(t, tc.principal, tc.rate, tc.term))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Schedule) != tc.term {
			t.Fatalf("expected %d entries, got %d", tc.term, len(res.Schedule))
		}
		last := res.Schedule[len(res.Schedule)-1]
		if math.Abs(last.RemainingBalance) > 0.01 {
			t.Errorf("%v@%v/%d: final balance %v", tc.principal, tc.rate, tc.term, last.RemainingBalance)
		}
		if math.Abs(last.Payment-res.MonthlyPayment) > 0.01 {
			t.Errorf("%v@%v/%d: final payment %v drifted from level payment %v",
				tc.principal, tc.rate, tc.term, last.Payment, res.MonthlyPayment)
		}
	}
}

func TestCompute_TotalsMatchSimpleFormula(t *testing.T) {
	p := mustLoan(t, 1000000, 9, 120)

	res, err := Compute(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cost, err := TotalCost(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	interest, err := TotalInterest(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(cost-1520109.29) > 0.01 {
		t.Errorf("expected total cost 1520109.29, got %v", cost)
	}
	if math.Abs(interest-520109.29) > 0.01 {
		t.Errorf("expected total interest 520109.29, got %v", interest)
	}
	if math.Abs(res.TotalCost-cost) > 0.01 {
		t.Errorf("schedule total %v disagrees with formula total %v", res.TotalCost, cost)
	}
}

func TestComputeWithPromotionalRate_SegmentsConnect(t *testing.T) {
	p, err := mustLoan(t, 1000000, 9, 120).WithPromotion(5, 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := ComputeWithPromotionalRate(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	promoOnly := RemainingBalance(1000000, 5, 120, 24)
	if math.Abs(res.Schedule[23].RemainingBalance-promoOnly) > 0.01 {
		t.Errorf("balance at month 24 %v differs from promotional-only balance %v",
			res.Schedule[23].RemainingBalance, promoOnly)
	}
	if math.Abs(res.BalanceAtPromotionEnd-837805.57) > 0.01 {
		t.Errorf("expected balance at promotion end 837805.57, got %v", res.BalanceAtPromotionEnd)
	}
	if math.Abs(res.PromotionalMonthlyPayment-10606.55) > 0.01 {
		t.Errorf("expected promotional payment 10606.55, got %v", res.PromotionalMonthlyPayment)
	}
	if math.Abs(res.MonthlyPayment-12274.02) > 0.01 {
		t.Errorf("expected regular payment 12274.02, got %v", res.MonthlyPayment)
	}
	if res.Schedule[24].Payment != res.MonthlyPayment {
		t.Errorf("expected month 25 to pay the regular payment, got %v", res.Schedule[24].Payment)
	}
	if last := res.Schedule[119]; math.Abs(last.RemainingBalance) > 0.01 {
		t.Errorf("expected final balance 0, got %v", last.RemainingBalance)
	}
	if math.Abs(res.TotalCost-1432863.34) > 0.02 {
		t.Errorf("expected total cost 1432863.34, got %v", res.TotalCost)
	}

	cost, err := TotalCost(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(cost-res.TotalCost) > 0.02 {
		t.Errorf("segment total %v disagrees with schedule total %v", cost, res.TotalCost)
	}
}

func TestRemainingBalance_Bounds(t *testing.T) {
	if got := RemainingBalance(1200, 0, 12, 6); got != 600 {
		t.Errorf("expected 600, got %v", got)
	}
	if got := RemainingBalance(1200, 7, 12, 0); got != 1200 {
		t.Errorf("expected 1200, got %v", got)
	}
	if got := RemainingBalance(1200, 7, 12, 12); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}
