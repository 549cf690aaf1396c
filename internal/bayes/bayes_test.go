package bayes

import (
	"math"
	"testing"

	"github.com/paradigmlink/copernica/internal/wire"
)

func bfiFilled(v uint16) wire.BFI {
	return wire.BFI{v, v, v, v}
}

func TestPrior(t *testing.T) {
	b := New()
	data := [wire.BFICount]wire.BFI{
		bfiFilled(0), bfiFilled(0), bfiFilled(0),
		bfiFilled(0), bfiFilled(0), bfiFilled(0),
	}
	l1 := wire.LinkID(1)
	b.Train(data, l1)

	prior, ok := b.Prior(l1)
	if !ok || prior != 1.0 {
		t.Fatalf("expected prior 1.0, got %v ok=%v", prior, ok)
	}
}

func TestLogPrior(t *testing.T) {
	b := New()
	var data [wire.BFICount]wire.BFI
	l1 := wire.LinkID(1)
	b.Train(data, l1)

	logPrior, ok := b.LogPrior(l1)
	if !ok || logPrior != 0.0 {
		t.Fatalf("expected log prior 0.0, got %v ok=%v", logPrior, ok)
	}
}

func TestPriorNonexistentLink(t *testing.T) {
	b := New()
	var data [wire.BFICount]wire.BFI
	l1 := wire.LinkID(1)
	l2 := wire.LinkID(2)
	b.Train(data, l1)

	if _, ok := b.Prior(l2); ok {
		t.Fatal("expected prior for untrained link to be absent")
	}
}

func TestClassification(t *testing.T) {
	b := New()

	h1 := bfiFilled(0)
	l1 := wire.LinkID(1)
	b.Train([wire.BFICount]wire.BFI{h1, bfiFilled(1), bfiFilled(2), bfiFilled(3), bfiFilled(4), bfiFilled(5)}, l1)

	l2 := wire.LinkID(2)
	b.Train([wire.BFICount]wire.BFI{bfiFilled(100), bfiFilled(101), bfiFilled(102), bfiFilled(103), bfiFilled(104), bfiFilled(105)}, l2)

	probe := [wire.BFICount]wire.BFI{h1, bfiFilled(9001), bfiFilled(9002), bfiFilled(9003), bfiFilled(9004), bfiFilled(9005)}
	classes := b.Classify(probe)

	if len(classes) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(classes))
	}
	if classes[0].Weight != 0.5 {
		t.Fatalf("expected top weight 0.5, got %v", classes[0].Weight)
	}
	if classes[1].Weight != 0.0000000005 {
		t.Fatalf("expected second weight 0.0000000005, got %v", classes[1].Weight)
	}
}

func TestLogClassification(t *testing.T) {
	b := New()

	h1 := bfiFilled(0)
	l1 := wire.LinkID(1)
	b.Train([wire.BFICount]wire.BFI{h1, bfiFilled(1), bfiFilled(2), bfiFilled(3), bfiFilled(4), bfiFilled(5)}, l1)

	l2 := wire.LinkID(2)
	b.Train([wire.BFICount]wire.BFI{bfiFilled(100), bfiFilled(101), bfiFilled(102), bfiFilled(103), bfiFilled(104), bfiFilled(105)}, l2)

	probe := [wire.BFICount]wire.BFI{h1, bfiFilled(9001), bfiFilled(9002), bfiFilled(9003), bfiFilled(9004), bfiFilled(9005)}
	classes := b.LogClassify(probe)

	if len(classes) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(classes))
	}
	wantTop := -math.Ln2
	if math.Abs(classes[0].Weight-wantTop) > 1e-12 {
		t.Fatalf("expected top weight %v, got %v", wantTop, classes[0].Weight)
	}
	wantSecond := -100.69314718055995
	if math.Abs(classes[1].Weight-wantSecond) > 1e-9 {
		t.Fatalf("expected second weight %v, got %v", wantSecond, classes[1].Weight)
	}
}
