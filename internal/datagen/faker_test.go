//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"slices"
	"strings"
	"testing"
	"unicode"

	"github.com/shopspring/decimal"
)

func TestNewFaker(t *testing.T) {
	f := NewFaker()
	if f == nil {
		t.Fatal("NewFaker returned nil")
	}
	if f.faker == nil {
		t.Fatal("faker field is nil")
	}
}

func TestNewFakerWithSeed(t *testing.T) {
	seed := uint64(12345)
	f1 := NewFakerWithSeed(seed)
	f2 := NewFakerWithSeed(seed)

	// Same seed should produce same sequence
	for i := 0; i < 10; i++ {
		v1 := f1.Int(0, 1000)
		v2 := f2.Int(0, 1000)
		if v1 != v2 {
			t.Errorf("Same seed produced different values: %d != %d", v1, v2)
		}
	}
	if f1.Name() != f2.Name() {
		t.Error("Same seed produced different names")
	}
}

func TestFakerStrings(t *testing.T) {
	f := NewFakerWithSeed(7)
	tests := []struct {
		name string
		fn   func() string
	}{
		{"Name", f.Name},
		{"LastName", f.LastName},
		{"City", f.City},
		{"State", f.State},
	}
	for _, tt := range tests {
		if tt.fn() == "" {
			t.Errorf("%s returned empty string", tt.name)
		}
	}
	if len(f.State()) != 2 {
		t.Error("State should be a two letter abbreviation")
	}
}

func TestFakerInt(t *testing.T) {
	f := NewFaker()
	for i := 0; i < 100; i++ {
		v := f.Int(10, 20)
		if v < 10 || v > 20 {
			t.Errorf("Int out of range: %d", v)
		}
	}
}

func TestFakerInt64(t *testing.T) {
	f := NewFaker()
	for i := 0; i < 100; i++ {
		v := f.Int64(100000, 5000000)
		if v < 100000 || v > 5000000 {
			t.Errorf("Int64 out of range: %d", v)
		}
	}
}

func TestFakerMoney(t *testing.T) {
	f := NewFaker()
	for i := 0; i < 100; i++ {
		v := f.Money(50, 500)
		if v.LessThan(decimal.NewFromInt(50)) || v.GreaterThan(decimal.NewFromInt(500)) {
			t.Errorf("Money out of range: %s", v)
		}
		if v.Exponent() < -2 {
			t.Errorf("Money not rounded to cents: %s", v)
		}
	}
}

func TestFakerSyllables(t *testing.T) {
	f := NewFaker()
	name := f.Syllables(3)
	if name == "" {
		t.Fatal("Syllables returned empty string")
	}
	if !unicode.IsUpper(rune(name[0])) {
		t.Errorf("Syllables should be capitalised: %s", name)
	}
	if name[1:] != strings.ToLower(name[1:]) {
		t.Errorf("Only the first letter should be upper case: %s", name)
	}
}

func TestChoose(t *testing.T) {
	f := NewFaker()
	items := []string{"a", "b", "c", "d", "e"}

	for i := 0; i < 100; i++ {
		chosen := Choose(f, items)
		if !slices.Contains(items, chosen) {
			t.Errorf("Choose returned item not in slice: %s", chosen)
		}
	}
}

func TestChooseEmpty(t *testing.T) {
	f := NewFaker()
	var items []string

	chosen := Choose(f, items)
	if chosen != "" {
		t.Errorf("Choose on empty slice should return zero value, got: %s", chosen)
	}
}

func TestChooseWeighted(t *testing.T) {
	f := NewFakerWithSeed(42)
	items := []string{"a", "b", "c"}
	weights := []int{1, 2, 7} // c should be chosen ~70% of the time

	counts := make(map[string]int)
	iterations := 1000

	for i := 0; i < iterations; i++ {
		chosen := ChooseWeighted(f, items, weights)
		counts[chosen]++
	}

	if counts["c"] < counts["a"] || counts["c"] < counts["b"] {
		t.Errorf("Weighted choice distribution unexpected: %v", counts)
	}
}

func TestChooseWeightedEmpty(t *testing.T) {
	f := NewFaker()
	var items []string
	var weights []int

	chosen := ChooseWeighted(f, items, weights)
	if chosen != "" {
		t.Errorf("ChooseWeighted on empty slices should return zero value, got: %s", chosen)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello"},
		{"", 5, ""},
		{"exact", 5, "exact"},
	}

	for _, tt := range tests {
		result := Truncate(tt.input, tt.maxLen)
		if result != tt.expected {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, result, tt.expected)
		}
	}
}
