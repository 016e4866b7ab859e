package pairing

import (
	"bytes"
	"image/png"
	"testing"
	"time"
)

func TestMintRedeemOnce(t *testing.T) {
	r := New("https://termmux.example/pair")
	c := r.Mint()

	if c.Token == "" {
		t.Fatalf("expected a non-empty token")
	}
	if c.URL != "https://termmux.example/pair?token="+c.Token {
		t.Fatalf("URL = %q, want suffix ?token=%s", c.URL, c.Token)
	}
	if r.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", r.Pending())
	}

	if !r.Redeem(c.Token) {
		t.Fatalf("first Redeem should succeed")
	}
	if r.Redeem(c.Token) {
		t.Fatalf("second Redeem of the same token must fail")
	}
	if r.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0 after redeem", r.Pending())
	}
}

func TestRedeemUnknownToken(t *testing.T) {
	r := New("https://termmux.example/pair")
	if r.Redeem("does-not-exist") {
		t.Fatalf("Redeem of an unknown token must fail")
	}
}

func TestMintExpires(t *testing.T) {
	r := New("https://termmux.example/pair")
	now := time.Now()
	r.now = func() time.Time { return now }

	c := r.Mint()
	r.now = func() time.Time { return now.Add(2 * defaultTTL) }

	if r.Redeem(c.Token) {
		t.Fatalf("Redeem of an expired token must fail")
	}
	if r.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0 once the only code has expired", r.Pending())
	}
}

func TestMintEvictsExpiredOnNextMint(t *testing.T) {
	r := New("https://termmux.example/pair")
	now := time.Now()
	r.now = func() time.Time { return now }
	stale := r.Mint()

	r.now = func() time.Time { return now.Add(2 * defaultTTL) }
	r.Mint()

	if r.Redeem(stale.Token) {
		t.Fatalf("expired code must not survive a later Mint")
	}
}

func TestRenderQRProducesDecodablePNG(t *testing.T) {
	r := New("https://termmux.example/pair")
	c := r.Mint()

	data, err := RenderQR(c, 128)
	if err != nil {
		t.Fatalf("RenderQR: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding RenderQR output: %v", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		t.Fatalf("decoded image has empty bounds %v", b)
	}
}
