package engine

import (
	"testing"

	"drv_adapter/internal/layout"
)

// BenchmarkQuote_FixedPrice measures the hot quote path routers call per hop.
func BenchmarkQuote_FixedPrice(b *testing.B) {
	m := newMarket(layout.CurveFixedPrice, 3000, 5)
	req := sell(10_000_000)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := Quote(m, req); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkQuote_ConstantProduct(b *testing.B) {
	m := newMarket(layout.CurveConstantProduct, 3000, 0)
	req := buy(10_000_000_000)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := Quote(m, req); err != nil {
			b.Fatal(err)
		}
	}
}
