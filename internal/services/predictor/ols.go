package predictor

import (
    "context"
    "fmt"

    "gonum.org/v1/gonum/floats"
    "gonum.org/v1/gonum/mat"

    "FinCast/internal/domain"
    domsvc "FinCast/internal/domain/service"
)

// OLSTrainer fits a linear model with intercept by ridge-regularized least
// squares. The penalty is ridge * mean(diag(XᵀX)) and never touches the intercept.
type OLSTrainer struct {
    ridge float64
}

func NewOLSTrainer(ridge float64) *OLSTrainer {
    if ridge < 0 {
        ridge = 0
    }
    return &OLSTrainer{ridge: ridge}
}

func (t *OLSTrainer) Name() string { return "ols" }

// Fit solves (XᵀX + λI)β = Xᵀy through a Cholesky factorization.
func (t *OLSTrainer) Fit(ctx context.Context, X [][]float64, y []float64) (domsvc.OneStepModel, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    n := len(X)
    if n == 0 || n != len(y) {
        return nil, fmt.Errorf("%w: %d rows for %d targets", domain.ErrPredictorFailure, n, len(y))
    }
    width := len(X[0])
    p := width + 1

    data := make([]float64, 0, n*p)
    for i, row := range X {
        if len(row) != width {
            return nil, fmt.Errorf("%w: row %d has %d features, want %d", domain.ErrPredictorFailure, i, len(row), width)
        }
        data = append(data, 1)
        data = append(data, row...)
    }
    design := mat.NewDense(n, p, data)
    target := mat.NewVecDense(n, append([]float64(nil), y...))

    gram := mat.NewSymDense(p, nil)
    gram.SymOuterK(1, design.T())

    if t.ridge > 0 && width > 0 {
        trace := 0.0
        for i := 1; i < p; i++ {
            trace += gram.At(i, i)
        }
        lambda := t.ridge * trace / float64(width)
        for i := 1; i < p; i++ {
            gram.SetSym(i, i, gram.At(i, i)+lambda)
        }
    }

    var chol mat.Cholesky
    if ok := chol.Factorize(gram); !ok {
        return nil, fmt.Errorf("%w: normal equations not positive definite", domain.ErrPredictorFailure)
    }

    var xty mat.VecDense
    xty.MulVec(design.T(), target)

    var beta mat.VecDense
    if err := chol.SolveVecTo(&beta, &xty); err != nil {
        return nil, fmt.Errorf("%w: solve: %v", domain.ErrPredictorFailure, err)
    }

    coef := make([]float64, p)
    for i := range coef {
        coef[i] = beta.AtVec(i)
    }
    return &LinearModel{Intercept: coef[0], Coefficients: coef[1:]}, nil
}

// LinearModel predicts Intercept + Coefficients·features.
type LinearModel struct {
    Intercept    float64
    Coefficients []float64
}

func (m *LinearModel) Predict(_ context.Context, features []float64) (float64, error) {
    if len(features) != len(m.Coefficients) {
        return 0, fmt.Errorf("%w: got %d features, model expects %d",
            domain.ErrPredictorFailure, len(features), len(m.Coefficients))
    }
    return m.Intercept + floats.Dot(m.Coefficients, features), nil
}

var (
    _ domsvc.OneStepTrainer = (*OLSTrainer)(nil)
    _ domsvc.OneStepModel   = (*LinearModel)(nil)
)
