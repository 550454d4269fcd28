package manifold

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// SE3 is a rigid transform on the 3D rigid-motion manifold, stored as a
// unit quaternion rotation plus a translation. This is the double-precision
// form used for the optimized world pose and trajectory knots.
type SE3 struct {
	Rot   quat.Number // unit quaternion
	Trans r3.Vec
}

// Twist is a 6-vector on the tangent space of SE3: rotation (axis-angle,
// radians) followed by translation.
type Twist struct {
	W r3.Vec // rotation
	V r3.Vec // translation
}

// Identity returns the identity rigid transform.
func Identity() SE3 {
	return SE3{Rot: quat.Number{Real: 1}, Trans: r3.Vec{}}
}

// NewSE3 builds a pose from a rotation quaternion (need not be normalized)
// and a translation.
func NewSE3(rot quat.Number, trans r3.Vec) SE3 {
	return SE3{Rot: quat.Scale(1/quat.Abs(rot), rot), Trans: trans}
}

// Act applies the transform to a point in the transform's source frame,
// returning the point in the transform's target frame.
func (T SE3) Act(p r3.Vec) r3.Vec {
	return r3.Add(rotate(T.Rot, p), T.Trans)
}

// Mul composes two transforms: (T.Mul(S)).Act(p) == T.Act(S.Act(p)).
func (T SE3) Mul(S SE3) SE3 {
	return SE3{
		Rot:   quat.Mul(T.Rot, S.Rot),
		Trans: r3.Add(rotate(T.Rot, S.Trans), T.Trans),
	}
}

// Inverse returns the inverse transform.
func (T SE3) Inverse() SE3 {
	rInv := quat.Conj(T.Rot)
	return SE3{Rot: rInv, Trans: rotate(rInv, r3.Scale(-1, T.Trans))}
}

// Plus is the manifold "boxplus" operator: T ⊞ δ = T * exp(δ).
func (T SE3) Plus(delta Twist) SE3 {
	return T.Mul(Exp(delta))
}

// Exp is the SE3 exponential map. The rotation component follows the
// axis-angle-to-quaternion identity via gonum's quaternion exponential:
// q = exp(pure-quaternion(w/2)). The translation component is scaled by
// the left Jacobian of SO(3), matching Sophus::SE3::exp semantics.
func Exp(t Twist) SE3 {
	half := r3.Scale(0.5, t.W)
	rot := quat.Exp(quat.Number{Imag: half.X, Jmag: half.Y, Kmag: half.Z})
	return SE3{Rot: rot, Trans: leftJacobianSO3(t.W, t.V)}
}

// Log is the SE3 logarithm map, the inverse of Exp.
func (T SE3) Log() Twist {
	w := quatLog(T.Rot)
	v := leftJacobianSO3Inverse(w, T.Trans)
	return Twist{W: w, V: v}
}

// rotate applies a unit quaternion rotation to a vector.
func rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	res := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: res.Imag, Y: res.Jmag, Z: res.Kmag}
}

// quatLog recovers the axis-angle rotation vector from a unit quaternion.
func quatLog(q quat.Number) r3.Vec {
	vNorm := math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if vNorm < 1e-12 {
		return r3.Vec{}
	}
	theta := 2 * math.Atan2(vNorm, q.Real)
	scale := theta / vNorm
	return r3.Vec{X: q.Imag * scale, Y: q.Jmag * scale, Z: q.Kmag * scale}
}

// skew returns the 3x3 skew-symmetric cross-product matrix of v.
func skew(v r3.Vec) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v.Z, v.Y,
		v.Z, 0, -v.X,
		-v.Y, v.X, 0,
	})
}

// leftJacobianSO3 applies the left Jacobian of SO(3) at rotation vector w to
// vector v: V(w) v, where V(w) = I + (1-cosθ)/θ² [w]× + (θ-sinθ)/θ³ [w]×².
func leftJacobianSO3(w, v r3.Vec) r3.Vec {
	theta := r3.Norm(w)
	if theta < 1e-8 {
		// V(w) ≈ I + 0.5 [w]×
		return r3.Add(v, r3.Scale(0.5, cross(w, v)))
	}
	a := (1 - math.Cos(theta)) / (theta * theta)
	b := (theta - math.Sin(theta)) / (theta * theta * theta)
	wxv := cross(w, v)
	wxwxv := cross(w, wxv)
	return r3.Add(v, r3.Add(r3.Scale(a, wxv), r3.Scale(b, wxwxv)))
}

// leftJacobianSO3Inverse applies V(w)^-1 to vector v (used by Log).
func leftJacobianSO3Inverse(w, v r3.Vec) r3.Vec {
	theta := r3.Norm(w)
	if theta < 1e-8 {
		return r3.Sub(v, r3.Scale(0.5, cross(w, v)))
	}
	halfCot := (theta / 2) * (1 / math.Tan(theta/2))
	a := 0.5
	b := (1 - halfCot) / (theta * theta)
	wxv := cross(w, v)
	wxwxv := cross(w, wxv)
	return r3.Add(v, r3.Add(r3.Scale(-a, wxv), r3.Scale(b, wxwxv)))
}

func cross(a, b r3.Vec) r3.Vec {
	return r3.Vec{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

// DxThisMulExpXAt0 returns the 3x6 point-motion Jacobian d(T*exp(x)*p)/dx
// evaluated at x=0, for a point p already expressed in T's source frame and
// a rotation R = T.Rot. Per spec: [ R*(-[p]x) | R ].
//
// Grounded on original_source/sv/llol/factor.cpp's LocalParamSE3, whose
// ComputeJacobian computes T.Dx_this_mul_exp_x_at_0().
func DxThisMulExpXAt0(rot quat.Number, p r3.Vec) *mat.Dense {
	R := RotationMatrix(rot)
	negSkewP := skew(r3.Scale(-1, p))
	var rNegSkewP mat.Dense
	rNegSkewP.Mul(R, negSkewP)

	J := mat.NewDense(3, 6, nil)
	J.Slice(0, 3, 0, 3).(*mat.Dense).Copy(&rNegSkewP)
	J.Slice(0, 3, 3, 6).(*mat.Dense).Copy(R)
	return J
}

// RotationMatrix returns the 3x3 rotation matrix for a unit quaternion.
func RotationMatrix(q quat.Number) *mat.Dense {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	})
}

// Lerp linearly interpolates two poses: rotation via normalized quaternion
// lerp-then-normalize, translation via simple linear interpolation. This is
// the per-column motion-compensation interpolant (spec §4.2), deliberately
// not a slerp/log-based interpolation.
func Lerp(a, b SE3, alpha float64) SE3 {
	qa, qb := a.Rot, b.Rot
	if quat.Number(qa).Real*qb.Real+qa.Imag*qb.Imag+qa.Jmag*qb.Jmag+qa.Kmag*qb.Kmag < 0 {
		qb = quat.Scale(-1, qb)
	}
	lerped := quat.Add(quat.Scale(1-alpha, qa), quat.Scale(alpha, qb))
	n := quat.Abs(lerped)
	if n < 1e-12 {
		lerped = quat.Number{Real: 1}
	} else {
		lerped = quat.Scale(1/n, lerped)
	}
	trans := r3.Add(r3.Scale(1-alpha, a.Trans), r3.Scale(alpha, b.Trans))
	return SE3{Rot: lerped, Trans: trans}
}
