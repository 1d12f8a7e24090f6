// Package regression fits a linear next-bar price model over indicator columns.
package regression

import (
	"fmt"
	"math"

	"github.com/dnldd/etfsignal/indicator"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultTrainRatio is the default share of rows used for training.
	DefaultTrainRatio = 0.8
	// PredictedColumn is the name of the column holding next-bar price predictions.
	PredictedColumn = "predicted"
)

// Model represents an ordinary least squares model with an intercept.
type Model struct {
	Features     []string
	Coefficients []float64
	Intercept    float64
	// TrainR2 and TestR2 are the coefficients of determination of each split.
	TrainR2 float64
	TestR2  float64
	// Split is the index of the first test row of the fitted frame.
	Split int
}

// design extracts the feature matrix of the provided rows.
func design(frame *indicator.Frame, features []string, rows int) (*mat.Dense, error) {
	x := mat.NewDense(rows, len(features)+1, nil)
	for col, name := range features {
		values, ok := frame.Column(name)
		if !ok {
			return nil, fmt.Errorf("unknown feature column %s", name)
		}
		for row := 0; row < rows; row++ {
			if math.IsNaN(values[row]) {
				return nil, fmt.Errorf("feature %s is undefined at row %d", name, row)
			}
			x.Set(row, col+1, values[row])
		}
	}
	for row := 0; row < rows; row++ {
		x.Set(row, 0, 1)
	}

	return x, nil
}

// Fit trains a model predicting the next bar's close from the provided feature
// columns. The last row has no target and is excluded, the first trainRatio share of
// the remaining rows trains the model and the rest evaluates it.
func Fit(frame *indicator.Frame, features []string, trainRatio float64) (*Model, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("no features provided")
	}
	if trainRatio <= 0 || trainRatio >= 1 {
		return nil, fmt.Errorf("train ratio must be within (0, 1), got %f", trainRatio)
	}

	rows := frame.Len() - 1
	split := int(trainRatio * float64(rows))
	if split < len(features)+1 || rows-split < 1 {
		return nil, fmt.Errorf("not enough rows (%d) to fit %d features", rows, len(features))
	}

	x, err := design(frame, features, rows)
	if err != nil {
		return nil, err
	}

	closes := frame.Closes()
	target := closes[1 : rows+1]

	xTrain := x.Slice(0, split, 0, len(features)+1)
	yTrain := mat.NewVecDense(split, append([]float64(nil), target[:split]...))

	var beta mat.VecDense
	err = beta.SolveVec(xTrain, yTrain)
	if err != nil {
		return nil, fmt.Errorf("solving least squares: %w", err)
	}

	model := &Model{
		Features:     append([]string(nil), features...),
		Coefficients: make([]float64, len(features)),
		Intercept:    beta.AtVec(0),
		Split:        split,
	}
	for idx := range features {
		model.Coefficients[idx] = beta.AtVec(idx + 1)
	}

	estimates := make([]float64, rows)
	for row := 0; row < rows; row++ {
		estimates[row] = model.predictRow(x.RawRowView(row)[1:])
	}

	model.TrainR2 = stat.RSquaredFrom(estimates[:split], target[:split], nil)
	model.TestR2 = stat.RSquaredFrom(estimates[split:], target[split:], nil)

	return model, nil
}

// predictRow evaluates the model for one row of feature values.
func (m *Model) predictRow(values []float64) float64 {
	pred := m.Intercept
	for idx, v := range values {
		pred += m.Coefficients[idx] * v
	}

	return pred
}

// Predict returns the next-bar predictions for every row of the provided frame.
func (m *Model) Predict(frame *indicator.Frame) ([]float64, error) {
	columns := make([][]float64, len(m.Features))
	for idx, name := range m.Features {
		values, ok := frame.Column(name)
		if !ok {
			return nil, fmt.Errorf("unknown feature column %s", name)
		}
		columns[idx] = values
	}

	preds := make([]float64, frame.Len())
	row := make([]float64, len(m.Features))
	for idx := range preds {
		for col := range columns {
			row[col] = columns[col][idx]
		}
		preds[idx] = m.predictRow(row)
	}

	return preds, nil
}

// Annotate returns a new frame with the model predictions as an added column.
func (m *Model) Annotate(frame *indicator.Frame) (*indicator.Frame, error) {
	preds, err := m.Predict(frame)
	if err != nil {
		return nil, err
	}

	return frame.WithColumn(PredictedColumn, preds, 0)
}

// String returns the fitted equation.
func (m *Model) String() string {
	eq := "price ="
	for idx, name := range m.Features {
		eq += fmt.Sprintf(" %+.4f * %s", m.Coefficients[idx], name)
	}

	return eq + fmt.Sprintf(" %+.4f", m.Intercept)
}
