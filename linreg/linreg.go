// Package linreg fits ordinary least squares models with an intercept on
// sparse feature vectors.
package linreg

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/features"
)

// Singular values of the equilibrated Gram matrix below
// rankTolerance·columns·s[0] are treated as zero.
const (
	epsilon       = 0x1p-52
	rankTolerance = 100 * epsilon
)

// A column whose centered sum of squares is below constantTolerance times its
// raw sum of squares is treated as constant.
const constantTolerance = 1e-10

// Model is a fitted linear model: y = Intercept + Coef·x
type Model struct {
	coef      []float64
	intercept float64
}

// New builds a model from known parameters
func New(coef []float64, intercept float64) *Model {
	cp := make([]float64, len(coef))
	copy(cp, coef)
	return &Model{coef: cp, intercept: intercept}
}

// Fit solves the least squares problem for rows x (width columns) and targets y.
//
// The intercept is handled by centering: the normal equations
// (XᵀX − n·m·mᵀ)w = Xᵀy − n·m·ȳ are built directly from the sparse rows,
// equilibrated to a unit diagonal and solved through an SVD pseudo-inverse,
// then intercept = ȳ − m·w. Among all least squares solutions the one with
// the smallest ‖w‖ is returned.
func Fit(x []features.Vector, width int, y []float64) (*Model, error) {
	n := len(y)
	switch {
	case n == 0:
		return nil, errors.New("linreg: no samples")
	case len(x) != n:
		return nil, errors.Newf("linreg: %d rows but %d targets", len(x), n)
	case width <= 0:
		return nil, errors.Newf("linreg: width must be positive, got %d", width)
	}

	mean := make([]float64, width)
	var yMean float64
	for i, row := range x {
		for k, j := range row.Indices {
			if j < 0 || j >= width {
				return nil, errors.Newf("linreg: row %d index %d out of range [0, %d)", i, j, width)
			}
			mean[j] += row.Values[k]
		}
		yMean += y[i]
	}
	fn := float64(n)
	for j := range mean {
		mean[j] /= fn
	}
	yMean /= fn

	// Gram matrix and moment vector, accumulated sparsely
	gram := mat.NewSymDense(width, nil)
	moment := make([]float64, width)
	for i, row := range x {
		for a, ja := range row.Indices {
			va := row.Values[a]
			moment[ja] += va * y[i]
			for b := a; b < len(row.Indices); b++ {
				jb := row.Indices[b]
				gram.SetSym(ja, jb, gram.At(ja, jb)+va*row.Values[b])
			}
		}
	}
	raw := make([]float64, width)
	for a := 0; a < width; a++ {
		raw[a] = gram.At(a, a)
		moment[a] -= fn * mean[a] * yMean
		for b := a; b < width; b++ {
			gram.SetSym(a, b, gram.At(a, b)-fn*mean[a]*mean[b])
		}
	}

	w, err := solveNormal(gram, moment, raw)
	if err != nil {
		return nil, err
	}

	intercept := yMean
	for j := 0; j < width; j++ {
		intercept -= mean[j] * w[j]
	}

	m := &Model{coef: w, intercept: intercept}
	if !m.finite() {
		return nil, errors.New("linreg: solution is not finite")
	}
	return m, nil
}

// solveNormal returns the minimum-norm solution of gram·w = moment.
//
// Columns are scaled to a unit diagonal first. Without that a single large
// numeric column (an odometer outlier) dominates the spectrum and the
// directions of rarely seen categories fall under the rank cutoff. Constant
// columns, judged against their raw sums of squares, get a zero coefficient.
func solveNormal(gram *mat.SymDense, moment, raw []float64) ([]float64, error) {
	width, _ := gram.Dims()

	var active []int
	for j := 0; j < width; j++ {
		if d := gram.At(j, j); d > 0 && d > constantTolerance*raw[j] {
			active = append(active, j)
		}
	}
	w := make([]float64, width)
	if len(active) == 0 {
		return w, nil
	}

	k := len(active)
	scale := make([]float64, k)
	for a, j := range active {
		scale[a] = 1 / math.Sqrt(gram.At(j, j))
	}
	scaled := mat.NewSymDense(k, nil)
	rhs := mat.NewVecDense(k, nil)
	for a, ja := range active {
		rhs.SetVec(a, moment[ja]*scale[a])
		for b := a; b < k; b++ {
			scaled.SetSym(a, b, gram.At(ja, active[b])*scale[a]*scale[b])
		}
	}

	z, null, err := pinvSolve(scaled, rhs)
	if err != nil {
		return nil, err
	}

	// Back to original units: w = S·z, and null vectors u map to S·u
	sol := mat.NewVecDense(k, nil)
	for a := range scale {
		sol.SetVec(a, z.AtVec(a)*scale[a])
	}
	if null != nil {
		_, nk := null.Dims()
		for a := range scale {
			for c := 0; c < nk; c++ {
				null.Set(a, c, null.At(a, c)*scale[a])
			}
		}
		projectOut(sol, null)
	}

	for a, j := range active {
		w[j] = sol.AtVec(a)
	}
	return w, nil
}

// pinvSolve returns the minimum-norm solution of a·z = b and a basis of the
// numerical null space of a (nil when a has full rank)
func pinvSolve(a mat.Symmetric, b *mat.VecDense) (*mat.VecDense, *mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, nil, errors.New("linreg: SVD factorization failed")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	var utb mat.VecDense
	utb.MulVec(u.T(), b)

	n := a.SymmetricDim()
	cutoff := s[0] * rankTolerance * float64(n)
	var nullCols []int
	for i, sv := range s {
		if sv > cutoff && sv > 0 {
			utb.SetVec(i, utb.AtVec(i)/sv)
		} else {
			utb.SetVec(i, 0)
			nullCols = append(nullCols, i)
		}
	}

	var z mat.VecDense
	z.MulVec(&v, &utb)

	if len(nullCols) == 0 {
		return &z, nil, nil
	}
	null := mat.NewDense(n, len(nullCols), nil)
	for c, i := range nullCols {
		null.SetCol(c, mat.Col(nil, i, &v))
	}
	return &z, null, nil
}

// projectOut removes from w its component in the column span of basis
func projectOut(w *mat.VecDense, basis *mat.Dense) {
	rows, cols := basis.Dims()

	var qr mat.QR
	qr.Factorize(basis)
	var q mat.Dense
	qr.QTo(&q)
	qk := q.Slice(0, rows, 0, cols)

	var coef, along mat.VecDense
	coef.MulVec(qk.T(), w)
	along.MulVec(qk, &coef)
	w.SubVec(w, &along)
}

func (m *Model) finite() bool {
	if math.IsNaN(m.intercept) || math.IsInf(m.intercept, 0) {
		return false
	}
	for _, c := range m.coef {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Intercept returns the fitted intercept
func (m *Model) Intercept() float64 { return m.intercept }

// Coef returns a copy of the coefficients, one per column
func (m *Model) Coef() []float64 {
	out := make([]float64, len(m.coef))
	copy(out, m.coef)
	return out
}

// Width returns the number of coefficients
func (m *Model) Width() int { return len(m.coef) }

// Predict evaluates the model on one sparse row. Indices beyond the model's
// width contribute nothing.
func (m *Model) Predict(v features.Vector) float64 {
	y := m.intercept
	for k, j := range v.Indices {
		if j >= 0 && j < len(m.coef) {
			y += m.coef[j] * v.Values[k]
		}
	}
	return y
}

// RMSE returns the root mean squared error of the model over rows x
func (m *Model) RMSE(x []features.Vector, y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	var sum float64
	for i, row := range x {
		d := m.Predict(row) - y[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(y)))
}
