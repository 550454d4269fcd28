package manifold

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3f is a single-precision 3-vector, used for the large per-column
// pose and per-point arrays carried by a sweep where float64 would double
// the memory footprint for no numeric benefit.
type Vec3f struct {
	X, Y, Z float32
}

// SE3f is the single-precision form of a rigid pose, used for the large
// per-column pose arrays carried by a sweep (spec §3: "Separate
// single-precision form used for per-column poses ... and double-precision
// form for the optimized world pose"). Conversions to/from SE3 are
// explicit so the per-column hot path never silently promotes to
// float64 arrays.
type SE3f struct {
	RotW, RotX, RotY, RotZ float32
	Trans                  Vec3f
}

// IdentityF returns the single-precision identity pose.
func IdentityF() SE3f {
	return SE3f{RotW: 1}
}

// ToSE3 widens a single-precision pose to the double-precision form used
// by the solver and trajectory.
func (f SE3f) ToSE3() SE3 {
	return SE3{
		Rot: quatFromFloat32(f.RotW, f.RotX, f.RotY, f.RotZ),
		Trans: r3.Vec{
			X: float64(f.Trans.X),
			Y: float64(f.Trans.Y),
			Z: float64(f.Trans.Z),
		},
	}
}

// FromSE3 narrows a double-precision pose to the single-precision form
// stored per sweep column.
func FromSE3(T SE3) SE3f {
	return SE3f{
		RotW:  float32(T.Rot.Real),
		RotX:  float32(T.Rot.Imag),
		RotY:  float32(T.Rot.Jmag),
		RotZ:  float32(T.Rot.Kmag),
		Trans: Vec3f{X: float32(T.Trans.X), Y: float32(T.Trans.Y), Z: float32(T.Trans.Z)},
	}
}

// Act applies the single-precision transform to a single-precision point.
func (f SE3f) Act(p Vec3f) Vec3f {
	p64 := r3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
	out := f.ToSE3().Act(p64)
	return Vec3f{X: float32(out.X), Y: float32(out.Y), Z: float32(out.Z)}
}

func quatFromFloat32(w, x, y, z float32) quat.Number {
	return quat.Number{Real: float64(w), Imag: float64(x), Jmag: float64(y), Kmag: float64(z)}
}
