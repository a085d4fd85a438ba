package net

import (
	"math"
	"testing"
)

func TestSelfCheckMonitor(t *testing.T) {
	t.Run("occasional failures tolerated", func(t *testing.T) {
		m := NewSelfCheckMonitor()
		for i := 0; i < 100; i++ {
			fail := i%10 == 0 // one failure per window
			if err := m.Record(fail); err != nil {
				t.Fatalf("escalated at %d with a single failure per window", i)
			}
		}
	})

	t.Run("two failures per window tolerated", func(t *testing.T) {
		m := NewSelfCheckMonitor()
		for i := 0; i < 100; i++ {
			fail := i%10 < 2
			if err := m.Record(fail); err != nil {
				t.Fatalf("escalated at %d with two failures per window", i)
			}
		}
	})

	t.Run("three failures escalate", func(t *testing.T) {
		m := NewSelfCheckMonitor()
		if err := m.Record(true); err != nil {
			t.Fatalf("escalated after one failure: %v", err)
		}
		if err := m.Record(true); err != nil {
			t.Fatalf("escalated after two failures: %v", err)
		}
		if err := m.Record(true); err == nil {
			t.Error("three failures in one window did not escalate")
		}
	})

	t.Run("escalation error", func(t *testing.T) {
		m := NewSelfCheckMonitor()
		var err error
		for i := 0; i < selfCheckMaxFailures; i++ {
			err = m.Record(true)
		}
		if err != ErrSelfCheck {
			t.Errorf("err = %v, want ErrSelfCheck", err)
		}
	})

	t.Run("window slides", func(t *testing.T) {
		m := NewSelfCheckMonitor()
		// Two failures, then enough passes to push them out.
		m.Record(true)
		m.Record(true)
		for i := 0; i < 2*selfCheckWindow; i++ {
			if err := m.Record(false); err != nil {
				t.Fatal(err)
			}
		}
		// Two fresh failures again stay under the threshold.
		if err := m.Record(true); err != nil {
			t.Fatal(err)
		}
		if err := m.Record(true); err != nil {
			t.Fatal(err)
		}
	})
}

func TestRelativeDifference(t *testing.T) {
	cases := []struct {
		name string
		a, b float32
		want float32
	}{
		{"equal", 0.5, 0.5, 0},
		{"double", 0.5, 0.25, 1},
		{"nan", float32(math.NaN()), 0.5, math.MaxFloat32},
		{"sign mismatch", 0.5, -0.5, math.MaxFloat32},
		{"below floor", 1e-6, 1e-9, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := relativeDifference(tc.a, tc.b); got != tc.want {
				t.Errorf("relativeDifference(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestCompareResults(t *testing.T) {
	base := Result{Policy: []float32{0.3, 0.3, 0.3}, PolicyPass: 0.1, Winrate: 0.5}

	same := Result{Policy: []float32{0.3, 0.3, 0.3}, PolicyPass: 0.1, Winrate: 0.5}
	if compareResults(base, same) {
		t.Error("identical results reported divergent")
	}

	near := Result{Policy: []float32{0.31, 0.3, 0.3}, PolicyPass: 0.1, Winrate: 0.51}
	if compareResults(base, near) {
		t.Error("results within tolerance reported divergent")
	}

	far := Result{Policy: []float32{0.6, 0.3, 0.3}, PolicyPass: 0.1, Winrate: 0.5}
	if !compareResults(base, far) {
		t.Error("doubled policy entry not reported divergent")
	}

	badWinrate := Result{Policy: []float32{0.3, 0.3, 0.3}, PolicyPass: 0.1, Winrate: 0.9}
	if !compareResults(base, badWinrate) {
		t.Error("divergent winrate not reported")
	}
}
