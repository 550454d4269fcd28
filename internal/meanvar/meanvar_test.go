package meanvar

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func samplePoints() []r3.Vec {
	return []r3.Vec{
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: -1, Y: 0, Z: 0},
		{X: 0, Y: -1, Z: 0},
		{X: 0.5, Y: 0.5, Z: 1},
		{X: -0.5, Y: -0.5, Z: -1},
	}
}

func accumulate(pts []r3.Vec) MeanCovar3 {
	var mc MeanCovar3
	for _, p := range pts {
		mc.Add(p)
	}
	return mc
}

func TestMeanCovarPermutationInvariant(t *testing.T) {
	base := samplePoints()
	want := accumulate(base)

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		shuffled := append([]r3.Vec(nil), base...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := accumulate(shuffled)

		if got.N() != want.N() {
			t.Fatalf("N mismatch: got %d want %d", got.N(), want.N())
		}
		if math.Abs(got.Mean().X-want.Mean().X) > 1e-9 ||
			math.Abs(got.Mean().Y-want.Mean().Y) > 1e-9 ||
			math.Abs(got.Mean().Z-want.Mean().Z) > 1e-9 {
			t.Fatalf("mean mismatch on trial %d: got %+v want %+v", trial, got.Mean(), want.Mean())
		}

		gotCov, wantCov := got.Covariance(), want.Covariance()
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if math.Abs(gotCov.At(i, j)-wantCov.At(i, j)) > 1e-9 {
					t.Fatalf("cov[%d][%d] mismatch on trial %d: got %v want %v", i, j, trial, gotCov.At(i, j), wantCov.At(i, j))
				}
			}
		}
	}
}

func TestMeanCovarMergeMatchesSequentialAdd(t *testing.T) {
	pts := samplePoints()
	sequential := accumulate(pts)

	var a, b MeanCovar3
	for i, p := range pts {
		if i < len(pts)/2 {
			a.Add(p)
		} else {
			b.Add(p)
		}
	}
	a.Merge(b)

	if a.N() != sequential.N() {
		t.Fatalf("N mismatch: got %d want %d", a.N(), sequential.N())
	}
	wantMean, gotMean := sequential.Mean(), a.Mean()
	if math.Abs(gotMean.X-wantMean.X) > 1e-9 || math.Abs(gotMean.Y-wantMean.Y) > 1e-9 || math.Abs(gotMean.Z-wantMean.Z) > 1e-9 {
		t.Fatalf("merged mean = %+v, want %+v", gotMean, wantMean)
	}
	gotCov, wantCov := a.Covariance(), sequential.Covariance()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(gotCov.At(i, j)-wantCov.At(i, j)) > 1e-9 {
				t.Fatalf("merged cov[%d][%d] = %v, want %v", i, j, gotCov.At(i, j), wantCov.At(i, j))
			}
		}
	}
}

func TestMeanCovarOk(t *testing.T) {
	var mc MeanCovar3
	if mc.Ok(2) {
		t.Fatal("empty accumulator should not be Ok(2)")
	}
	mc.Add(r3.Vec{X: 1})
	if mc.Ok(2) {
		t.Fatal("single point should not be Ok(2)")
	}
	mc.Add(r3.Vec{X: 2})
	if !mc.Ok(2) {
		t.Fatal("two points should be Ok(2)")
	}
}

func TestCurvatureScoreLowForPlanar(t *testing.T) {
	planar := []float64{5.0, 5.01, 4.99, 5.0, 5.02}
	noisy := []float64{5.0, 7.0, 3.0, 6.0, 4.0}

	planarScore := CurvatureScore(planar)
	noisyScore := CurvatureScore(noisy)
	if math.IsNaN(planarScore) || math.IsNaN(noisyScore) {
		t.Fatalf("unexpected NaN: planar=%v noisy=%v", planarScore, noisyScore)
	}
	if planarScore >= noisyScore {
		t.Errorf("expected planar score (%v) < noisy score (%v)", planarScore, noisyScore)
	}
}

func TestCurvatureScoreNaNWhenUnderfilled(t *testing.T) {
	if !math.IsNaN(CurvatureScore(nil)) {
		t.Error("expected NaN for empty ranges")
	}
	if !math.IsNaN(CurvatureScore([]float64{3.0})) {
		t.Error("expected NaN for single-sample ranges")
	}
}
