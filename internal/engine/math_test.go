package engine

import (
	"errors"
	"testing"

	"drv_adapter/internal/domain"

	"github.com/holiman/uint256"
)

func TestMulDiv(t *testing.T) {
	got, err := mulDiv(u256(7), u256(3), u256(2))
	if err != nil || got.Uint64() != 10 {
		t.Errorf("Expected 10, got %v (%v)", got, err)
	}

	up, err := mulDivUp(u256(7), u256(3), u256(2))
	if err != nil || up.Uint64() != 11 {
		t.Errorf("Expected 11, got %v (%v)", up, err)
	}

	exact, err := mulDivUp(u256(8), u256(3), u256(2))
	if err != nil || exact.Uint64() != 12 {
		t.Errorf("Expected 12, got %v (%v)", exact, err)
	}
}

func TestMulDiv_Overflow(t *testing.T) {
	top := new(uint256.Int).SetAllOne()

	if _, err := mulDiv(top, u256(2), u256(1)); !errors.Is(err, domain.ErrArithmeticOverflow) {
		t.Errorf("Expected overflow, got %v", err)
	}
	if _, err := mulDiv(u256(1), u256(1), u256(0)); !errors.Is(err, domain.ErrArithmeticOverflow) {
		t.Errorf("Expected overflow on zero divisor, got %v", err)
	}

	// 512-bit intermediate keeps this exact
	z, err := mulDiv(top, u256(3), u256(3))
	if err != nil || !z.Eq(top) {
		t.Errorf("Expected max, got %v (%v)", z, err)
	}
}

func TestToRaw_KeepsWideValues(t *testing.T) {
	huge := new(uint256.Int).Mul(u256(WAD), u256(1<<63))
	z, err := toRaw(huge, u256(100))
	if err != nil {
		t.Fatalf("toRaw failed: %v", err)
	}
	want := new(uint256.Int).Mul(u256(100), u256(1<<63))
	if !z.Eq(want) || z.IsUint64() {
		t.Errorf("Expected %s beyond 64 bits, got %s", want, z)
	}
}
