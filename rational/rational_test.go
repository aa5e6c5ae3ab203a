package rational

import "testing"

func TestReduceNormalizesFraction(t *testing.T) {
	r := New(2, 4)
	if r.Num() != 1 || r.Denom() != 2 {
		t.Fatalf("got %s, want 1/2", r)
	}
}

func TestAddUsesLCMDenominator(t *testing.T) {
	sum := Add(New(1, 6), New(1, 4))
	if !Equal(sum, New(5, 12)) {
		t.Fatalf("got %s, want 5/12", sum)
	}
}

func TestMulAndDiv(t *testing.T) {
	product := Mul(New(1, 2), New(1, 3))
	if !Equal(product, New(1, 6)) {
		t.Fatalf("got %s, want 1/6", product)
	}

	quotient := Div(New(1, 2), New(2, 3))
	if !Equal(quotient, New(3, 4)) {
		t.Fatalf("got %s, want 3/4", quotient)
	}
}

func TestNegativeDenomNormalizes(t *testing.T) {
	r := New(2, -4)
	if r.Num() != -1 || r.Denom() != 2 {
		t.Fatalf("got %d/%d, want -1/2", r.Num(), r.Denom())
	}
}

func TestOrderingUsesReducedForm(t *testing.T) {
	if !Equal(New(1, 2), New(2, 4)) {
		t.Fatalf("expected 1/2 == 2/4")
	}
	if !Less(New(1, 3), New(1, 2)) {
		t.Fatalf("expected 1/3 < 1/2")
	}
	if !Less(New(-1, 2), New(1, 3)) {
		t.Fatalf("expected -1/2 < 1/3")
	}
}

func TestDivByZeroReturnsZero(t *testing.T) {
	if !Div(New(1, 2), Zero()).IsZero() {
		t.Fatalf("expected division by zero to fall back to zero")
	}
}

func TestReduceTo(t *testing.T) {
	got := New(1, 2).ReduceTo(4)
	if !Equal(got, New(2, 4)) {
		t.Fatalf("got %s, want 2/4 equivalent", got)
	}
	// Unreachable target denominator leaves value unchanged.
	got = New(1, 3).ReduceTo(4)
	if !Equal(got, New(1, 3)) {
		t.Fatalf("got %s, want unchanged 1/3", got)
	}
}

func TestFloat64Conversion(t *testing.T) {
	if f := New(1, 4).Float64(); f != 0.25 {
		t.Fatalf("got %v, want 0.25", f)
	}
}
