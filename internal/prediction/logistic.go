package prediction

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// standardize returns the column means and scales of x. A column without
// spread gets scale 1.
func standardize(x [][]float64) (means, scales []float64) {
	cols := len(x[0])
	means = make([]float64, cols)
	scales = make([]float64, cols)
	col := make([]float64, len(x))
	for j := 0; j < cols; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if len(x) < 2 || std == 0 || math.IsNaN(std) {
			std = 1
		}
		means[j] = mean
		scales[j] = std
	}
	return means, scales
}

func scale(row, means, scales []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - means[j]) / scales[j]
	}
	return out
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// softplus is log(1 + e^z) without overflow
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

// fitLogistic minimises the mean log-loss plus lambda/2 * |params|^2 with
// BFGS. Params are the weights followed by the bias. The penalty also
// covers the bias, which keeps single-class training sets well posed.
func fitLogistic(x [][]float64, y []float64, lambda float64) (weights []float64, bias float64, err error) {
	n := float64(len(x))
	dim := len(x[0])

	logit := func(p []float64, row []float64) float64 {
		return floats.Dot(p[:dim], row) + p[dim]
	}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			var loss float64
			for i, row := range x {
				z := logit(p, row)
				loss += softplus(z) - y[i]*z
			}
			return loss/n + lambda/2*floats.Dot(p, p)
		},
		Grad: func(grad, p []float64) {
			for j := range grad {
				grad[j] = 0
			}
			for i, row := range x {
				residual := sigmoid(logit(p, row)) - y[i]
				floats.AddScaled(grad[:dim], residual, row)
				grad[dim] += residual
			}
			floats.Scale(1/n, grad)
			floats.AddScaled(grad, lambda, p)
		},
	}

	result, err := optimize.Minimize(problem, make([]float64, dim+1), nil, &optimize.BFGS{})
	if result == nil {
		return nil, 0, fmt.Errorf("logistic regression did not run: %w", err)
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, 0, fmt.Errorf("logistic regression diverged: %v", err)
		}
	}

	params := result.X
	return append([]float64(nil), params[:dim]...), params[dim], nil
}
