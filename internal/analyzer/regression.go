package analyzer

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"jobAggregator/internal/chart"
	"jobAggregator/internal/logger"
)

// MinRegressionRows — минимум строк для регрессионного анализа.
const MinRegressionRows = 10

// Coefficient — оценка одного коэффициента МНК.
type Coefficient struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	StdErr float64 `json:"std_err"`
	TStat  float64 `json:"t_stat"`
	PValue float64 `json:"p_value"`
}

// RegressionResult — итог МНК: зарплата на {опыт, образование, платформа}.
type RegressionResult struct {
	R2           float64       `json:"r2"`
	AdjustedR2   float64       `json:"adjusted_r2"`
	Coefficients []Coefficient `json:"coefficients"` // первый — свободный член
	Predicted    []float64     `json:"-"`
	Residuals    []float64     `json:"-"`

	ScatterChart   chart.Chart `json:"scatter_chart,omitempty"`   // факт против прогноза
	ResidualChart  chart.Chart `json:"residual_chart,omitempty"`  // остатки против прогноза
	CoefChart      chart.Chart `json:"coef_chart,omitempty"`      // столбцы коэффициентов
	ResidHistChart chart.Chart `json:"residual_hist,omitempty"`   // гистограмма остатков
}

// Regression строит МНК с свободным членом и считает R², скорректированный
// R², стандартные ошибки и p-значения коэффициентов (распределение Стьюдента).
func Regression(rows []Row, log *logger.Zap) (*RegressionResult, bool) {
	n := len(rows)
	if n < MinRegressionRows {
		return nil, false
	}
	const p = 3 // число факторов без свободного члена

	X := mat.NewDense(n, p+1, nil)
	y := mat.NewVecDense(n, nil)
	for i, r := range rows {
		X.Set(i, 0, 1)
		f := r.features()
		for j, v := range f {
			X.Set(i, j+1, v)
		}
		y.SetVec(i, r.Salary)
	}

	var qr mat.QR
	qr.Factorize(X)
	var betaDense mat.Dense
	if err := qr.SolveTo(&betaDense, false, y); err != nil {
		log.Warn("МНК не сошёлся", zap.Error(err))
		return nil, false
	}
	beta := make([]float64, p+1)
	for j := range beta {
		beta[j] = betaDense.At(j, 0)
	}

	result := &RegressionResult{
		Predicted: make([]float64, n),
		Residuals: make([]float64, n),
	}

	var rss, tss, yMean float64
	for i := 0; i < n; i++ {
		yMean += y.AtVec(i)
	}
	yMean /= float64(n)

	for i := 0; i < n; i++ {
		pred := beta[0]
		f := rows[i].features()
		for j, v := range f {
			pred += beta[j+1] * v
		}
		result.Predicted[i] = pred
		resid := y.AtVec(i) - pred
		result.Residuals[i] = resid
		rss += resid * resid
		d := y.AtVec(i) - yMean
		tss += d * d
	}

	if tss > 0 {
		result.R2 = 1 - rss/tss
	}
	dof := float64(n - p - 1)
	result.AdjustedR2 = 1 - (1-result.R2)*float64(n-1)/dof

	// Ковариация коэффициентов: (XᵀX)⁻¹·σ².
	sigma2 := rss / dof
	var xtx, inv mat.Dense
	xtx.Mul(X.T(), X)
	stderrs := make([]float64, p+1)
	if err := inv.Inverse(&xtx); err != nil {
		log.Warn("Матрица XᵀX вырождена, ошибки коэффициентов не оценены", zap.Error(err))
	} else {
		for j := 0; j <= p; j++ {
			stderrs[j] = math.Sqrt(inv.At(j, j) * sigma2)
		}
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof}
	names := append([]string{"Свободный член"}, featureNames...)
	for j := 0; j <= p; j++ {
		c := Coefficient{Name: names[j], Value: beta[j], StdErr: stderrs[j]}
		if c.StdErr > 0 {
			c.TStat = c.Value / c.StdErr
			c.PValue = 2 * tDist.Survival(math.Abs(c.TStat))
		} else {
			c.PValue = 1
		}
		result.Coefficients = append(result.Coefficients, c)
	}

	renderRegressionCharts(rows, result, log)
	return result, true
}

func renderRegressionCharts(rows []Row, result *RegressionResult, log *logger.Zap) {
	warn := func(what string, err error) {
		log.Warn("График регрессии не построен", zap.String("chart", what), zap.Error(err))
	}

	// Факт против прогноза с диагональю идеального предсказания.
	scatterXYs := make(plotter.XYs, len(rows))
	min, max := rows[0].Salary, rows[0].Salary
	for i, r := range rows {
		scatterXYs[i] = plotter.XY{X: result.Predicted[i], Y: r.Salary}
		if r.Salary < min {
			min = r.Salary
		}
		if r.Salary > max {
			max = r.Salary
		}
	}
	sp := plot.New()
	sp.Title.Text = "Факт против прогноза"
	sp.X.Label.Text = "Прогноз (руб.)"
	sp.Y.Label.Text = "Факт (руб.)"
	if scatter, err := plotter.NewScatter(scatterXYs); err != nil {
		warn("scatter", err)
	} else {
		scatter.Color = chart.Blue
		sp.Add(scatter)
		if diag, err := plotter.NewLine(plotter.XYs{{X: min, Y: min}, {X: max, Y: max}}); err == nil {
			diag.Color = chart.Red
			sp.Add(diag)
		}
		if img, err := chart.PNG(sp, 5*vg.Inch, 4*vg.Inch); err != nil {
			warn("scatter", err)
		} else {
			result.ScatterChart = img
		}
	}

	// Остатки против прогноза.
	residXYs := make(plotter.XYs, len(rows))
	for i := range rows {
		residXYs[i] = plotter.XY{X: result.Predicted[i], Y: result.Residuals[i]}
	}
	rp := plot.New()
	rp.Title.Text = "Остатки"
	rp.X.Label.Text = "Прогноз (руб.)"
	rp.Y.Label.Text = "Остаток (руб.)"
	if scatter, err := plotter.NewScatter(residXYs); err != nil {
		warn("residuals", err)
	} else {
		scatter.Color = chart.Gray
		rp.Add(scatter)
		if img, err := chart.PNG(rp, 5*vg.Inch, 4*vg.Inch); err != nil {
			warn("residuals", err)
		} else {
			result.ResidualChart = img
		}
	}

	// Столбцы коэффициентов (без свободного члена — он другого масштаба).
	labels := make([]string, 0, len(result.Coefficients)-1)
	values := make([]float64, 0, len(result.Coefficients)-1)
	for _, c := range result.Coefficients[1:] {
		labels = append(labels, c.Name)
		values = append(values, c.Value)
	}
	if cp, err := chart.Bar("Коэффициенты регрессии", "Вклад в зарплату (руб.)", labels, values, chart.Green); err != nil {
		warn("coefficients", err)
	} else if img, err := chart.PNG(cp, 5*vg.Inch, 4*vg.Inch); err != nil {
		warn("coefficients", err)
	} else {
		result.CoefChart = img
	}

	// Гистограмма остатков.
	hp := plot.New()
	hp.Title.Text = "Распределение остатков"
	hp.X.Label.Text = "Остаток (руб.)"
	if hist, err := plotter.NewHist(plotter.Values(result.Residuals), 12); err != nil {
		warn("residual histogram", err)
	} else {
		hist.FillColor = chart.Blue
		hp.Add(hist)
		if img, err := chart.PNG(hp, 5*vg.Inch, 4*vg.Inch); err != nil {
			warn("residual histogram", err)
		} else {
			result.ResidHistChart = img
		}
	}
}
