package analyzer

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"jobAggregator/internal/chart"
	"jobAggregator/internal/logger"
)

// MinCorrelationRows — минимум строк для корреляционного анализа.
// Значение закреплено тестами; меньшая выборка даёт «нет результата».
const MinCorrelationRows = 5

// FactorCorrelation — связь одного фактора с зарплатой.
type FactorCorrelation struct {
	Factor    string  `json:"factor"`
	R         float64 `json:"r"`
	Strength  string  `json:"strength"`  // strong / moderate / weak / very weak
	Direction string  `json:"direction"` // positive / negative
}

// CorrelationResult — матрица парных корреляций и её интерпретация.
type CorrelationResult struct {
	Labels  []string            `json:"labels"`
	Matrix  [][]float64         `json:"matrix"`
	Factors []FactorCorrelation `json:"factors"`
	Chart   chart.Chart         `json:"chart,omitempty"`
}

// Correlation считает матрицу Пирсона по {зарплата, опыт, образование,
// платформа} и классифицирует связь каждого фактора с зарплатой.
func Correlation(rows []Row, log *logger.Zap) (*CorrelationResult, bool) {
	if len(rows) < MinCorrelationRows {
		return nil, false
	}

	data := mat.NewDense(len(rows), 4, nil)
	for i, r := range rows {
		data.Set(i, 0, r.Salary)
		data.Set(i, 1, r.Experience)
		data.Set(i, 2, r.Education)
		data.Set(i, 3, r.Platform)
	}

	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, data, nil)

	result := &CorrelationResult{Labels: corrLabels}
	result.Matrix = make([][]float64, 4)
	for i := 0; i < 4; i++ {
		result.Matrix[i] = make([]float64, 4)
		for j := 0; j < 4; j++ {
			v := corr.At(i, j)
			if math.IsNaN(v) {
				v = 0 // постоянный столбец (например, одна платформа)
			}
			result.Matrix[i][j] = v
		}
	}

	for i, name := range featureNames {
		r := result.Matrix[0][i+1]
		result.Factors = append(result.Factors, FactorCorrelation{
			Factor:    name,
			R:         r,
			Strength:  correlationStrength(r),
			Direction: correlationDirection(r),
		})
	}

	result.Chart = renderHeatmap(result, log)
	return result, true
}

// correlationStrength классифицирует силу связи по модулю коэффициента.
func correlationStrength(r float64) string {
	abs := math.Abs(r)
	switch {
	case abs >= 0.7:
		return "strong"
	case abs >= 0.3:
		return "moderate"
	case abs >= 0.1:
		return "weak"
	default:
		return "very weak"
	}
}

func correlationDirection(r float64) string {
	if r < 0 {
		return "negative"
	}
	return "positive"
}

// corrGrid адаптирует матрицу под интерфейс сетки теплокарты.
type corrGrid struct {
	matrix [][]float64
}

func (g corrGrid) Dims() (int, int)   { return len(g.matrix), len(g.matrix) }
func (g corrGrid) Z(c, r int) float64 { return g.matrix[r][c] }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

func renderHeatmap(result *CorrelationResult, log *logger.Zap) chart.Chart {
	p := plot.New()
	p.Title.Text = "Корреляции признаков"

	palette := moreland.SmoothBlueRed().Palette(255)
	heatmap := plotter.NewHeatMap(corrGrid{matrix: result.Matrix}, palette)
	heatmap.Min = -1
	heatmap.Max = 1
	p.Add(heatmap)

	p.NominalX(result.Labels...)
	p.NominalY(result.Labels...)

	img, err := chart.PNG(p, 5*vg.Inch, 4*vg.Inch)
	if err != nil {
		log.Warn("Теплокарта корреляций не построена", zap.Error(err))
		return ""
	}
	return img
}
