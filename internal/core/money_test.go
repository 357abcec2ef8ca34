package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"9999999999.99", MaxAmountCents, true},
		{"9999999999.994", MaxAmountCents, true},
		{"9999999999.995", 0, false},
		{"10000000000", 0, false},
		{"184467440737095516.17", 0, false}, // wraps to 1 cent without the bound
		{"1e30", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyDiv(t *testing.T) {
	cases := []struct {
		cents int64
		n     int
		want  int64
	}{
		{1000, 4, 250},
		{1000, 3, 333},
		{200, 3, 67},
		{500, 0, 0},
		{0, 5, 0},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).Div(tc.n); got.Cents != tc.want {
			t.Fatalf("%d/%d expected %d, got %d", tc.cents, tc.n, tc.want, got.Cents)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}{Money{Cents: 200000}, Money{Cents: -15050}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":2000.00,"b":-150.50}` {
		t.Fatalf("unexpected json %s", b)
	}

	var m Money
	for in, want := range map[string]int64{`12.5`: 1250, `"7,25"`: 725, `null`: 0, `-3`: -300} {
		if err := json.Unmarshal([]byte(in), &m); err != nil || m.Cents != want {
			t.Fatalf("%s expected %d, got %d (err=%v)", in, want, m.Cents, err)
		}
	}
	for _, in := range []string{`"x"`, `1e30`, `184467440737095516.17`, `"10000000000"`, `-10000000000`} {
		if err := json.Unmarshal([]byte(in), &m); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%s expected ErrInvalidAmount, got %v", in, err)
		}
	}
}

func TestMoneySumHasNoDrift(t *testing.T) {
	dime, err := ParseMoney("0.1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var total Money
	for i := 0; i < 1000; i++ {
		total = total.Add(dime)
	}
	if total.String() != "100.00" {
		t.Fatalf("expected 100.00, got %s", total)
	}
}

func TestMoneyValidateBounds(t *testing.T) {
	cases := []struct {
		cents int64
		ok    bool
	}{
		{1, true},
		{MaxAmountCents, true},
		{MaxAmountCents + 1, false},
		{0, false},
		{-1, false},
	}
	for _, tc := range cases {
		err := (Money{Cents: tc.cents}).Validate()
		if tc.ok != (err == nil) {
			t.Fatalf("%d: ok=%v, got err=%v", tc.cents, tc.ok, err)
		}
	}
}
