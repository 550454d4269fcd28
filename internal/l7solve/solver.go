package l7solve

import (
	"math"
	"sync"

	"github.com/ridgeline-robotics/lio/internal/forkjoin"
	"github.com/ridgeline-robotics/lio/internal/l5match"
	"github.com/ridgeline-robotics/lio/internal/manifold"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// GicpSolver runs Gauss-Newton iteration over a batch of GICP
// correspondences to produce a pose increment.
//
// Grounded on original_source/sv/llol/factor.cpp's GicpFactor (residual
// and Jacobian construction from a PointMatch) and
// original_source/sv/util/solver.cpp's convergence bookkeeping; the
// iteration loop itself follows the teacher's small-dimensional
// Gauss-Newton idiom generalized to rigid/linear motion models.
type GicpSolver struct {
	cfg Config
}

// NewGicpSolver constructs a GicpSolver from cfg.
func NewGicpSolver(cfg Config) *GicpSolver {
	return &GicpSolver{cfg: cfg}
}

// Result is the solved increment. For RigidModel, X0 is the single 6-DoF
// increment applied uniformly to every column and Rate is zero. For
// LinearModel, the increment at column-time fraction alpha is
// X0 ⊞ (alpha * Rate).
type Result struct {
	Model Model
	X0    manifold.Twist
	Rate  manifold.Twist
}

// AtColumnFraction returns the increment twist to apply for a column whose
// time lies at fraction alpha (0 at the window start, 1 at the window
// end) through the sweep window. For RigidModel alpha is ignored.
func (r Result) AtColumnFraction(alpha float64) manifold.Twist {
	if r.Model == RigidModel {
		return r.X0
	}
	scaled := manifold.Twist{W: r3.Scale(alpha, r.Rate.W), V: r3.Scale(alpha, r.Rate.V)}
	combined := manifold.Exp(r.X0).Mul(manifold.Exp(scaled))
	return combined.Log()
}

// colObs is one correspondence pre-resolved against its column pose and
// time fraction, so the hot GN loop never re-touches l3grid/l5match types.
type colObs struct {
	colPose manifold.SE3
	alpha   float64
	pointS  r3.Vec
	pointP  r3.Vec
	U       [3][3]float64
}

// Solve iterates Gauss-Newton over matches, whose column poses come from
// colPoses (indexed by Correspondence.GridCol), until a stopping criterion
// is met. windowStart and windowEnd bound the sweep's column-time range
// used to compute each correspondence's time fraction for LinearModel.
// pool/gsize parallelize the per-correspondence Jacobian assembly within
// each GN iteration (grainSize <= 0 runs sequentially).
func (s *GicpSolver) Solve(pool *forkjoin.Pool, gsize int, matches []l5match.Correspondence, colPoses []manifold.SE3f, windowStart, windowEnd float64) (Result, Summary) {
	model := s.cfg.model()
	dim := 6
	if model == LinearModel {
		dim = 12
	}

	obs := make([]colObs, 0, len(matches))
	denom := windowEnd - windowStart
	for _, m := range matches {
		alpha := 0.0
		if denom > 0 {
			alpha = (m.ColTime - windowStart) / denom
		}
		obs = append(obs, colObs{
			colPose: colPoses[m.GridCol].ToSE3(),
			alpha:   alpha,
			pointS:  m.SweepMean,
			pointP:  m.PanoMean,
			U:       m.U,
		})
	}

	summary := Summary{Status: HitMaxIterations}
	x0 := manifold.Identity()
	rate := manifold.Twist{}

	// Fewer than MinCorrespondences is degenerate geometry (spec §7): the
	// Hessian would be rank-deficient or the solve statistically
	// meaningless, so the solver bails out without updating the
	// trajectory, per spec §8 scenario 1.
	if len(obs) < s.cfg.MinCorrespondences {
		summary.Status = CostTooSmall
		return Result{Model: model, X0: manifold.Twist{}, Rate: manifold.Twist{}}, summary
	}

	prevCost := math.Inf(1)
	for iter := 0; iter < s.cfg.MaxIters; iter++ {
		H := mat.NewSymDense(dim, nil)
		g := mat.NewVecDense(dim, nil)
		cost := 0.0
		gradMax := 0.0
		var mu sync.Mutex

		pool.Range(len(obs), gsize, func(a, b int) {
			hLocal := mat.NewSymDense(dim, nil)
			gLocal := mat.NewVecDense(dim, nil)
			costLocal := 0.0
			gradLocal := 0.0

			for i := a; i < b; i++ {
				o := obs[i]
				rateContrib := manifold.Twist{W: r3.Scale(o.alpha, rate.W), V: r3.Scale(o.alpha, rate.V)}
				tCur := o.colPose.Mul(x0).Mul(manifold.Exp(rateContrib))

				pred := tCur.Act(o.pointS)
				raw := r3.Sub(pred, o.pointP)
				res := applyU(o.U, raw)

				J0 := manifold.DxThisMulExpXAt0(tCur.Rot, o.pointS) // 3x6
				var UJ mat.Dense
				UJ.Mul(uMat(o.U), J0) // 3x6

				var Jfull *mat.Dense
				if model == RigidModel {
					Jfull = &UJ
				} else {
					Jfull = mat.NewDense(3, 12, nil)
					Jfull.Slice(0, 3, 0, 6).(*mat.Dense).Copy(&UJ)
					var scaled mat.Dense
					scaled.Scale(o.alpha, &UJ)
					Jfull.Slice(0, 3, 6, 12).(*mat.Dense).Copy(&scaled)
				}

				costLocal += 0.5 * (res.X*res.X + res.Y*res.Y + res.Z*res.Z)
				rVec := mat.NewVecDense(3, []float64{res.X, res.Y, res.Z})

				var JtJ mat.Dense
				JtJ.Mul(Jfull.T(), Jfull)
				addToSym(hLocal, &JtJ)

				var Jtr mat.VecDense
				Jtr.MulVec(Jfull.T(), rVec)
				for k := 0; k < dim; k++ {
					gLocal.SetVec(k, gLocal.AtVec(k)+Jtr.AtVec(k))
					if v := math.Abs(Jtr.AtVec(k)); v > gradLocal {
						gradLocal = v
					}
				}
			}

			mu.Lock()
			addSymToSym(H, hLocal)
			for k := 0; k < dim; k++ {
				g.SetVec(k, g.AtVec(k)+gLocal.AtVec(k))
			}
			cost += costLocal
			if gradLocal > gradMax {
				gradMax = gradLocal
			}
			mu.Unlock()
		})

		if iter == 0 {
			summary.InitialCost = cost
		}
		summary.FinalCost = cost
		summary.GradientMaxNorm = gradMax
		summary.Iterations = iter + 1

		if gradMax < s.cfg.GradTol {
			summary.Status = GradientTooSmall
			break
		}
		if prevCost < math.Inf(1) && prevCost > 0 {
			relDrop := (prevCost - cost) / prevCost
			if relDrop < s.cfg.CostTol && relDrop >= 0 {
				summary.Status = CostTooSmall
				break
			}
		}
		prevCost = cost

		neg := mat.NewVecDense(dim, nil)
		neg.ScaleVec(-1, g)
		delta, ok := solveNormalEquations(H, neg, s.cfg.InitialDamping, s.cfg.MaxDampingRetries)
		if !ok {
			summary.Status = HitMaxIterations
			break
		}

		deltaNorm := mat.Norm(delta, 2)
		if deltaNorm < s.cfg.StepTol {
			applyDelta(&x0, &rate, delta, model)
			summary.Status = RelativeStepSizeTooSmall
			break
		}
		applyDelta(&x0, &rate, delta, model)
	}

	return Result{Model: model, X0: x0.Log(), Rate: rate}, summary
}

func applyDelta(x0 *manifold.SE3, rate *manifold.Twist, delta *mat.VecDense, model Model) {
	d0 := manifold.Twist{
		W: r3.Vec{X: delta.AtVec(0), Y: delta.AtVec(1), Z: delta.AtVec(2)},
		V: r3.Vec{X: delta.AtVec(3), Y: delta.AtVec(4), Z: delta.AtVec(5)},
	}
	*x0 = x0.Plus(d0)
	if model == LinearModel {
		dr := manifold.Twist{
			W: r3.Vec{X: delta.AtVec(6), Y: delta.AtVec(7), Z: delta.AtVec(8)},
			V: r3.Vec{X: delta.AtVec(9), Y: delta.AtVec(10), Z: delta.AtVec(11)},
		}
		rate.W = r3.Add(rate.W, dr.W)
		rate.V = r3.Add(rate.V, dr.V)
	}
}

func uMat(U [3][3]float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		U[0][0], U[0][1], U[0][2],
		U[1][0], U[1][1], U[1][2],
		U[2][0], U[2][1], U[2][2],
	})
}

func applyU(U [3][3]float64, v r3.Vec) r3.Vec {
	return r3.Vec{
		X: U[0][0]*v.X + U[0][1]*v.Y + U[0][2]*v.Z,
		Y: U[1][0]*v.X + U[1][1]*v.Y + U[1][2]*v.Z,
		Z: U[2][0]*v.X + U[2][1]*v.Y + U[2][2]*v.Z,
	}
}

func addToSym(dst *mat.SymDense, src *mat.Dense) {
	n, _ := dst.Dims()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, dst.At(i, j)+src.At(i, j))
		}
	}
}

func addSymToSym(dst, src *mat.SymDense) {
	n, _ := dst.Dims()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, dst.At(i, j)+src.At(i, j))
		}
	}
}

// solveNormalEquations solves H x = b via Cholesky, adding Levenberg
// damping to H's diagonal and retrying only when the undamped
// factorization fails (rank-deficient H), per spec §4.7 step 2.
func solveNormalEquations(H *mat.SymDense, b *mat.VecDense, initialDamping float64, maxRetries int) (*mat.VecDense, bool) {
	n, _ := H.Dims()
	damping := 0.0
	for attempt := 0; attempt <= maxRetries; attempt++ {
		damped := mat.NewSymDense(n, nil)
		damped.CopySym(H)
		if damping > 0 {
			for i := 0; i < n; i++ {
				damped.SetSym(i, i, damped.At(i, i)+damping)
			}
		}
		var chol mat.Cholesky
		if chol.Factorize(damped) {
			x := mat.NewVecDense(n, nil)
			if err := chol.SolveVecTo(x, b); err == nil {
				return x, true
			}
		}
		if damping == 0 {
			damping = initialDamping
		} else {
			damping *= 2
		}
	}
	return nil, false
}
