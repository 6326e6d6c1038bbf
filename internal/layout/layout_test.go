package layout

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"drv_adapter/internal/domain"

	"github.com/gagliardetto/solana-go"
)

var (
	solMint  = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	usdcMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	vault    = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
)

func sampleInstrument() Instrument {
	return Instrument{
		Version:         Version,
		ID:              7,
		AssetTokenID:    1,
		CurrencyTokenID: 2,
		Curve:           CurveFixedPrice,
		AssetMint:       solMint,
		CurrencyMint:    usdcMint,
		MapsAddress:     vault,
		LastPx:          150 * PriceScale,
		BestBid:         149 * PriceScale,
		BestAsk:         151 * PriceScale,
		AssetTokens:     1_000_000_000_000,
		CurrencyTokens:  150_000_000_000,
		FeeRate:         3000,
		SpreadBps:       5,
	}
}

func mustEncode(t *testing.T, enc func() ([]byte, error)) []byte {
	t.Helper()
	data, err := enc()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	return data
}

func TestDecodeToken(t *testing.T) {
	tok := NewToken(usdcMint, vault, 2, 6, 42_000_000)
	data := mustEncode(t, tok.Encode)

	if len(data) != TokenSize {
		t.Fatalf("Expected %d bytes, got %d", TokenSize, len(data))
	}
	if binary.LittleEndian.Uint32(data[0:4]) != AccountTypeToken {
		t.Errorf("Expected token tag at offset 0")
	}
	if !bytes.Equal(data[8:40], usdcMint[:]) {
		t.Errorf("Expected mint at offset 8")
	}
	if binary.LittleEndian.Uint64(data[80:88]) != 42_000_000 {
		t.Errorf("Expected balance at offset 80")
	}

	got, err := DecodeToken(data)
	if err != nil {
		t.Fatalf("DecodeToken failed: %v", err)
	}
	if got != tok {
		t.Errorf("Expected %+v, got %+v", tok, got)
	}
	if got.DecimalExponent() != 6 {
		t.Errorf("Expected 6 decimals, got %d", got.DecimalExponent())
	}
	if got.DecimalFactor().Uint64() != 1_000_000 {
		t.Errorf("Expected factor 1000000, got %s", got.DecimalFactor())
	}
}

func TestDecodeToken_AttributeHighBitsIgnored(t *testing.T) {
	data := mustEncode(t, NewToken(usdcMint, vault, 2, 9, 1).Encode)
	binary.LittleEndian.PutUint32(data[76:80], 0xABCD_0009)

	got, err := DecodeToken(data)
	if err != nil {
		t.Fatalf("DecodeToken failed: %v", err)
	}
	if got.DecimalExponent() != 9 {
		t.Errorf("Expected 9 decimals, got %d", got.DecimalExponent())
	}
}

func TestDecodeToken_Errors(t *testing.T) {
	valid := mustEncode(t, NewToken(usdcMint, vault, 2, 6, 1).Encode)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"empty", func([]byte) []byte { return nil }, domain.ErrMalformedAccount},
		{"short", func(b []byte) []byte { return b[:TokenSize-1] }, domain.ErrMalformedAccount},
		{"long", func(b []byte) []byte { return append(b, 0) }, domain.ErrMalformedAccount},
		{"wrong tag", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[0:4], AccountTypeInstrument)
			return b
		}, domain.ErrMalformedAccount},
		{"wrong version", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[4:8], 2)
			return b
		}, domain.ErrUnsupportedInstrument},
		{"decimals too large", func(b []byte) []byte {
			b[76] = MaxDecimals + 1
			return b
		}, domain.ErrMalformedAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte(nil), valid...))
			_, err := DecodeToken(data)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeInstrument(t *testing.T) {
	in := sampleInstrument()
	data := mustEncode(t, in.Encode)

	if len(data) != InstrumentHeaderSize {
		t.Fatalf("Expected %d bytes, got %d", InstrumentHeaderSize, len(data))
	}

	got, err := DecodeInstrument(data)
	if err != nil {
		t.Fatalf("DecodeInstrument failed: %v", err)
	}
	if got != in {
		t.Errorf("Expected %+v, got %+v", in, got)
	}

	// order-book region after the header
	withBook := append(data, make([]byte, 4096)...)
	withBook[InstrumentHeaderSize] = 0xFF
	got, err = DecodeInstrument(withBook)
	if err != nil {
		t.Fatalf("DecodeInstrument with trailing data failed: %v", err)
	}
	if got != in {
		t.Errorf("Trailing bytes changed the header: %+v", got)
	}
}

func TestDecodeInstrument_DoesNotAlias(t *testing.T) {
	data := mustEncode(t, sampleInstrument().Encode)
	got, err := DecodeInstrument(data)
	if err != nil {
		t.Fatalf("DecodeInstrument failed: %v", err)
	}

	for i := range data {
		data[i] = 0
	}
	if !got.AssetMint.Equals(solMint) {
		t.Error("Decoded record must not share memory with the input")
	}
}

func TestDecodeInstrument_Errors(t *testing.T) {
	valid := mustEncode(t, sampleInstrument().Encode)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"short", func(b []byte) []byte { return b[:InstrumentHeaderSize-1] }, domain.ErrMalformedAccount},
		{"wrong tag", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[0:4], AccountTypeToken)
			return b
		}, domain.ErrMalformedAccount},
		{"wrong version", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[4:8], 9)
			return b
		}, domain.ErrUnsupportedInstrument},
		{"unknown curve", func(b []byte) []byte {
			b[20] = 7
			return b
		}, domain.ErrUnsupportedInstrument},
		{"negative last px", func(b []byte) []byte {
			binary.LittleEndian.PutUint64(b[120:128], uint64(1)<<63)
			return b
		}, domain.ErrMalformedAccount},
		{"negative reserve", func(b []byte) []byte {
			binary.LittleEndian.PutUint64(b[152:160], ^uint64(0))
			return b
		}, domain.ErrMalformedAccount},
		{"fee above scale", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[160:164], FeeScale+1)
			return b
		}, domain.ErrMalformedAccount},
		{"spread above scale", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[164:168], BpsScale+1)
			return b
		}, domain.ErrMalformedAccount},
		{"same mints", func(b []byte) []byte {
			copy(b[56:88], b[24:56])
			return b
		}, domain.ErrMalformedAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte(nil), valid...))
			_, err := DecodeInstrument(data)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestMarketPx(t *testing.T) {
	tests := []struct {
		name           string
		last, bid, ask int64
		want           int64
	}{
		{"inside spread", 100, 99, 101, 100},
		{"last above ask", 105, 99, 101, 101},
		{"last below bid", 95, 99, 101, 99},
		{"no ask", 105, 99, 0, 105},
		{"no bid", 95, 0, 101, 95},
		{"empty book", 100, 0, 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Instrument{LastPx: tt.last, BestBid: tt.bid, BestAsk: tt.ask}
			if got := in.MarketPx(); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func FuzzDecodeToken(f *testing.F) {
	valid, _ := NewToken(usdcMint, vault, 2, 6, 1).Encode()
	f.Add(valid)
	f.Add([]byte{})
	f.Add(make([]byte, TokenSize))

	f.Fuzz(func(t *testing.T, data []byte) {
		tok, err := DecodeToken(data)
		if err != nil {
			return
		}
		again, err := tok.Encode()
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		// reserved bytes are not preserved
		if !bytes.Equal(again[:88], data[:88]) {
			t.Errorf("Round trip mismatch")
		}
	})
}

func FuzzDecodeInstrument(f *testing.F) {
	valid, _ := sampleInstrument().Encode()
	f.Add(valid)
	f.Add([]byte{})
	f.Add(make([]byte, InstrumentHeaderSize))

	f.Fuzz(func(t *testing.T, data []byte) {
		in, err := DecodeInstrument(data)
		if err != nil {
			return
		}
		if in.MarketPx() < 0 {
			t.Errorf("Negative market price %d", in.MarketPx())
		}
	})
}
