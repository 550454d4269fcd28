package l5match

import "gonum.org/v1/gonum/mat"

// computeSqrtInfo computes the upper-triangular square-root information
// matrix U such that UᵀU = (covS + covP + lambda*I)⁻¹, per spec §3's
// grid-cell definition and original_source/sv/llol/match.h's
// `PointMatch::SqrtInfo`.
//
// A single Cholesky factorization of (covS + covP + lambda*I) gives a
// LOWER-triangular factor L with LLᵀ = Σ, so L⁻¹ is lower-triangular —
// the wrong shape for U. Instead we factorize Σ, invert it via
// gonum's Cholesky.InverseTo to get Σ⁻¹ directly (itself SPD), then
// factorize Σ⁻¹ a second time and take its U factor: Σ⁻¹ = UᵀU exactly
// matches the glossary's definition of U.
func computeSqrtInfo(covS, covP *mat.SymDense, lambda float64) (U *mat.TriDense, ok bool) {
	var sum mat.SymDense
	sum.AddSym(covS, covP)
	for i := 0; i < 3; i++ {
		sum.SetSym(i, i, sum.At(i, i)+lambda)
	}

	var chol mat.Cholesky
	if !chol.Factorize(&sum) {
		return nil, false
	}

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, false
	}

	var chol2 mat.Cholesky
	if !chol2.Factorize(&inv) {
		return nil, false
	}

	U = mat.NewTriDense(3, mat.Upper, nil)
	chol2.UTo(U)
	return U, true
}

// triToArray copies a 3x3 upper-triangular factor into a plain array for
// storage on a Cell (spec §3 avoids a matrix-library type on the grid
// cell itself, to keep the grid package's public surface matrix-library
// free).
func triToArray(U *mat.TriDense) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = U.At(i, j)
		}
	}
	return out
}
