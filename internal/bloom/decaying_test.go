package bloom

import (
	"testing"

	"github.com/paradigmlink/copernica/internal/wire"
)

func mustBFIS(t *testing.T, names ...string) [wire.BFICount]wire.BFI {
	t.Helper()
	if len(names) != wire.BFICount {
		t.Fatalf("need exactly %d names", wire.BFICount)
	}
	var out [wire.BFICount]wire.BFI
	for i, n := range names {
		b, err := wire.BloomFilterIndex(n)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = b
	}
	return out
}

func TestCreateContainsDelete(t *testing.T) {
	d := New()
	bfis := mustBFIS(t, "req", "res", "app", "mod", "fun", "arg")

	if got := d.Contains(bfis); got != 0 {
		t.Fatalf("expected 0%% before create, got %d", got)
	}

	d.Create(bfis)
	if got := d.Contains(bfis); got != 100 {
		t.Fatalf("expected 100%% after create, got %d", got)
	}

	d.Delete(bfis)
	if got := d.Contains(bfis); got != 0 {
		t.Fatalf("expected 0%% after delete, got %d", got)
	}
}

func TestDecoherenceGrowsWithInsertions(t *testing.T) {
	d := New()
	if d.Decoherence() != 0 {
		t.Fatal("expected empty filter to have 0 decoherence")
	}
	for i := 0; i < 20; i++ {
		bfis := mustBFIS(t, "req"+string(rune('a'+i)), "res", "app", "mod", "fun", "arg")
		d.Create(bfis)
	}
	if d.Decoherence() == 0 {
		t.Fatal("expected nonzero decoherence after many insertions")
	}
}

func TestPartiallyForgetHalvesDensity(t *testing.T) {
	d := New()
	for i := 0; i < 64; i++ {
		bfis := mustBFIS(t, "req"+string(rune('a'+i%26))+string(rune('A'+i/26)), "res", "app", "mod", "fun", "arg")
		d.Create(bfis)
	}
	before := d.bits.Count()
	if before == 0 {
		t.Fatal("expected some bits set before forgetting")
	}
	d.PartiallyForget()
	after := d.bits.Count()
	if after >= before {
		t.Fatalf("expected PartiallyForget to reduce set bits: before=%d after=%d", before, after)
	}
}
