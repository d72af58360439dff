// Package stats считает описательную статистику по выборке вакансий и
// порождает инсайты — короткие текстовые наблюдения с числовой опорой
// и рекомендацией. Каждый анализ самостоятелен и при нехватке данных
// возвращает «нет результата», а не ошибку.
package stats

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Insight — производное наблюдение по агрегатам. Не персистентен,
// живёт в пределах одного вызова анализа.
type Insight struct {
	Category    string   `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Value       *float64 `json:"value,omitempty"`
	Unit        string   `json:"unit,omitempty"`
}

func insightValue(v float64) *float64 { return &v }

// median — медиана через сортировку и середину: нечётное число элементов —
// средний, чётное — среднее двух средних.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// stdDev — выборочное стандартное отклонение.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// percentile — перцентиль с линейной интерполяцией.
func percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(q, stat.LinInterp, sorted, nil)
}
