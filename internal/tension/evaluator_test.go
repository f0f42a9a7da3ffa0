package tension

import (
	"math"
	"testing"
	"time"
)

const eps = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestEvaluate_DefaultWeights(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	r := e.Evaluate(50, 100, 300*time.Second, 1200*time.Second, 0.5)

	// 0.6*0.5 + 0.2*0.25 + 0.2*0.5
	want := 0.3 + 0.05 + 0.1
	if !approx(r.Tension, want) {
		t.Fatalf("expected tension %f, got %f", want, r.Tension)
	}
	if !approx(r.SpawnCountMultiplier, 1+want*2) {
		t.Errorf("expected spawn count %f, got %f", 1+want*2, r.SpawnCountMultiplier)
	}
	if !approx(r.Intensity, 0.4+want*0.6) {
		t.Errorf("expected intensity %f, got %f", 0.4+want*0.6, r.Intensity)
	}
}

func TestEvaluate_ClampsInputs(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	r := e.Evaluate(500, 100, 5*time.Hour, time.Minute, 7)
	if r.Tension != 1 {
		t.Fatalf("expected saturated tension 1, got %f", r.Tension)
	}
	if r.HeatNormalized != 1 || r.TimeNormalized != 1 || r.AlertNormalized != 1 {
		t.Errorf("expected all normalized inputs at 1, got %+v", r)
	}

	r = e.Evaluate(-20, 100, -time.Second, time.Minute, -3)
	if r.Tension != 0 {
		t.Fatalf("expected tension 0, got %f", r.Tension)
	}
	if r.SpawnCountMultiplier != 1 || r.AggressionMultiplier != 1 || r.SpawnIntervalMultiplier != 1 {
		t.Errorf("expected baseline multipliers at zero tension, got %+v", r)
	}
}

func TestEvaluate_ZeroDenominators(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	r := e.Evaluate(10, 0, time.Second, 0, 0)
	if r.HeatNormalized != 1 || r.TimeNormalized != 1 {
		t.Errorf("expected saturated ratios for zero denominators, got heat=%f time=%f", r.HeatNormalized, r.TimeNormalized)
	}
	r = e.Evaluate(0, 0, 0, 0, 0)
	if r.Tension != 0 {
		t.Errorf("expected 0 tension, got %f", r.Tension)
	}
}

func TestEvaluate_Pure(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	a := e.Evaluate(33, 100, 41*time.Second, 10*time.Minute, 0.3)
	b := e.Evaluate(33, 100, 41*time.Second, 10*time.Minute, 0.3)
	if a != b {
		t.Fatalf("expected identical results, got %+v vs %+v", a, b)
	}
}

func TestEvaluate_MonotonicInEachInput(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	max := 10 * time.Minute
	base := []float64{0, 0.1, 0.35, 0.5, 0.8, 1}

	for _, h := range base {
		for _, tm := range base {
			for _, a := range base {
				r := e.Evaluate(h*100, 100, time.Duration(tm*float64(max)), max, a)
				for _, step := range []float64{0.05, 0.2, 0.6} {
					rh := e.Evaluate((h+step)*100, 100, time.Duration(tm*float64(max)), max, a)
					rt := e.Evaluate(h*100, 100, time.Duration((tm+step)*float64(max)), max, a)
					ra := e.Evaluate(h*100, 100, time.Duration(tm*float64(max)), max, a+step)
					for name, next := range map[string]Result{"heat": rh, "time": rt, "alert": ra} {
						if next.Tension+eps < r.Tension {
							t.Fatalf("%s +%f decreased tension: %f -> %f", name, step, r.Tension, next.Tension)
						}
						if next.AggressionMultiplier+eps < r.AggressionMultiplier {
							t.Fatalf("%s +%f decreased aggression", name, step)
						}
						if next.SpawnIntervalMultiplier > r.SpawnIntervalMultiplier+eps {
							t.Fatalf("%s +%f increased spawn interval", name, step)
						}
					}
				}
			}
		}
	}
}

func TestNewEvaluator_NormalizesWeights(t *testing.T) {
	e := NewEvaluator(Config{HeatWeight: 3, TimeWeight: 1, AlertWeight: 1})
	h, tm, a := e.Weights()
	if !approx(h, 0.6) || !approx(tm, 0.2) || !approx(a, 0.2) {
		t.Fatalf("expected 0.6/0.2/0.2, got %f/%f/%f", h, tm, a)
	}

	e = NewEvaluator(Config{HeatWeight: -1})
	h, tm, a = e.Weights()
	if !approx(h, 0.6) || !approx(tm, 0.2) || !approx(a, 0.2) {
		t.Fatalf("expected default weights for zero sum, got %f/%f/%f", h, tm, a)
	}
}

func TestCurve_At(t *testing.T) {
	c := Curve{{0, 1}, {0.5, 1.4}, {1, 2}}
	cases := []struct {
		x, want float64
	}{
		{-1, 1},
		{0, 1},
		{0.25, 1.2},
		{0.5, 1.4},
		{0.75, 1.7},
		{1, 2},
		{3, 2},
	}
	for _, tc := range cases {
		if got := c.At(tc.x); !approx(got, tc.want) {
			t.Errorf("At(%f): expected %f, got %f", tc.x, tc.want, got)
		}
	}
	if got := (Curve{}).At(0.5); got != 1 {
		t.Errorf("empty curve: expected 1, got %f", got)
	}
}

func TestAddImmediateAlert(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	if got := e.AddImmediateAlert(0.2, 0.3); !approx(got, 0.5) {
		t.Errorf("expected 0.5, got %f", got)
	}
	if got := e.AddImmediateAlert(0.9, 0.5); got != 1 {
		t.Errorf("expected clamp to 1, got %f", got)
	}
	if got := e.AddImmediateAlert(0.4, math.NaN()); !approx(got, 0.4) {
		t.Errorf("expected NaN amount ignored, got %f", got)
	}
}
