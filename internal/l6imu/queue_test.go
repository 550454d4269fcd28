package l6imu

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestQueueRingBufferOverwritesOldest(t *testing.T) {
	q := NewQueue(3)
	for i := 0; i < 5; i++ {
		q.Add(Sample{Time: float64(i), Accel: r3.Vec{X: float64(i)}})
	}
	if !q.Full() {
		t.Fatal("expected queue to be full after 5 adds into capacity 3")
	}
	if q.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", q.Size())
	}
	// only samples for t=2,3,4 should remain
	got := q.InRange(0, 10)
	if len(got) != 3 {
		t.Fatalf("InRange(0,10) returned %d samples, want 3", len(got))
	}
	for i, s := range got {
		want := float64(i + 2)
		if s.Time != want {
			t.Errorf("got[%d].Time = %v, want %v", i, s.Time, want)
		}
	}
}

func TestQueueSizeBelowCapacity(t *testing.T) {
	q := NewQueue(10)
	q.Add(Sample{Time: 0})
	q.Add(Sample{Time: 1})
	if q.Full() {
		t.Error("expected queue not full with 2/10 samples")
	}
	if q.Size() != 2 {
		t.Errorf("Size() = %d, want 2", q.Size())
	}
}

func TestCalcMeanAveragesOldestK(t *testing.T) {
	q := NewQueue(5)
	q.Add(Sample{Time: 0, Accel: r3.Vec{X: 1}, Gyro: r3.Vec{Y: 2}})
	q.Add(Sample{Time: 1, Accel: r3.Vec{X: 3}, Gyro: r3.Vec{Y: 4}})
	q.Add(Sample{Time: 2, Accel: r3.Vec{X: 100}, Gyro: r3.Vec{Y: 100}})

	accel, gyro, ok := q.CalcMean(2)
	if !ok {
		t.Fatal("expected CalcMean(2) to succeed with 3 buffered samples")
	}
	if accel.X != 2 {
		t.Errorf("accel.X = %v, want 2 (mean of 1,3)", accel.X)
	}
	if gyro.Y != 3 {
		t.Errorf("gyro.Y = %v, want 3 (mean of 2,4)", gyro.Y)
	}
}

func TestCalcMeanFailsWhenUnderfilled(t *testing.T) {
	q := NewQueue(5)
	q.Add(Sample{Time: 0})
	if _, _, ok := q.CalcMean(3); ok {
		t.Error("expected CalcMean(3) to fail with only 1 buffered sample")
	}
}

func TestInRangeFiltersByTime(t *testing.T) {
	q := NewQueue(10)
	for i := 0; i < 5; i++ {
		q.Add(Sample{Time: float64(i)})
	}
	got := q.InRange(1.5, 3.5)
	if len(got) != 2 {
		t.Fatalf("InRange(1.5,3.5) returned %d samples, want 2", len(got))
	}
	if got[0].Time != 2 || got[1].Time != 3 {
		t.Errorf("got times %v, %v, want 2, 3", got[0].Time, got[1].Time)
	}
}
