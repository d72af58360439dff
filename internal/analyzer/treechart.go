package analyzer

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"jobAggregator/internal/chart"
	"jobAggregator/internal/logger"
)

// maxDiagramDepth — глубина отрисовки диаграммы; глубже дерево нечитаемо.
const maxDiagramDepth = 3

func renderTreeCharts(root *treeNode, result *TreeResult, actual, predicted []float64, log *logger.Zap) {
	warn := func(what string, err error) {
		log.Warn("График дерева не построен", zap.String("chart", what), zap.Error(err))
	}

	if img, err := renderTreeDiagram(root); err != nil {
		warn("diagram", err)
	} else {
		result.TreeChart = img
	}

	labels := make([]string, 0, len(result.Importances))
	values := make([]float64, 0, len(result.Importances))
	for _, imp := range result.Importances {
		labels = append(labels, imp.Factor)
		values = append(values, imp.Importance)
	}
	if ip, err := chart.Bar("Важность факторов", "Доля снижения дисперсии", labels, values, chart.Green); err != nil {
		warn("importances", err)
	} else if img, err := chart.PNG(ip, 5*vg.Inch, 4*vg.Inch); err != nil {
		warn("importances", err)
	} else {
		result.ImportanceChart = img
	}

	if img, err := renderPerformance(actual, predicted); err != nil {
		warn("performance", err)
	} else {
		result.PerformanceChart = img
	}
}

// renderTreeDiagram рисует структуру дерева: узлы подписями, рёбра линиями.
func renderTreeDiagram(root *treeNode) (chart.Chart, error) {
	p := plot.New()
	p.Title.Text = "Дерево решений"
	p.HideAxes()

	var xys plotter.XYs
	var texts []string
	var edges []plotter.XYs
	nextX := 0.0
	layoutTree(root, 0, &nextX, &xys, &texts, &edges)

	for _, edge := range edges {
		line, err := plotter.NewLine(edge)
		if err != nil {
			return "", err
		}
		line.Color = chart.Gray
		p.Add(line)
	}

	nodeLabels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return "", err
	}
	p.Add(nodeLabels)

	// Запас по краям, чтобы подписи не обрезались.
	p.X.Min, p.X.Max = -0.5, nextX-0.5
	p.Y.Min, p.Y.Max = -float64(maxDiagramDepth)-0.5, 0.5

	return chart.PNG(p, 8*vg.Inch, 5*vg.Inch)
}

// layoutTree раскладывает узлы: листья получают последовательные позиции,
// внутренние узлы встают над серединой потомков. Возвращает x узла.
func layoutTree(n *treeNode, depth int, nextX *float64, xys *plotter.XYs, texts *[]string, edges *[]plotter.XYs) float64 {
	y := -float64(depth)

	if n.isLeaf() || depth >= maxDiagramDepth {
		x := *nextX
		*nextX++
		*xys = append(*xys, plotter.XY{X: x, Y: y})
		*texts = append(*texts, fmt.Sprintf("%.0f руб.\n(n=%d)", n.value, n.samples))
		return x
	}

	lx := layoutTree(n.left, depth+1, nextX, xys, texts, edges)
	rx := layoutTree(n.right, depth+1, nextX, xys, texts, edges)
	x := (lx + rx) / 2

	*edges = append(*edges,
		plotter.XYs{{X: x, Y: y}, {X: lx, Y: y - 1}},
		plotter.XYs{{X: x, Y: y}, {X: rx, Y: y - 1}},
	)
	*xys = append(*xys, plotter.XY{X: x, Y: y})
	*texts = append(*texts, fmt.Sprintf("%s ≤ %.1f", featureNames[n.feature], n.threshold))
	return x
}

// renderPerformance — совмещённая картинка качества: «факт против прогноза»
// и гистограмма ошибок на отложенной выборке.
func renderPerformance(actual, predicted []float64) (chart.Chart, error) {
	sp := plot.New()
	sp.Title.Text = "Факт против прогноза"
	sp.X.Label.Text = "Прогноз (руб.)"
	sp.Y.Label.Text = "Факт (руб.)"

	xys := make(plotter.XYs, len(actual))
	min, max := actual[0], actual[0]
	for i := range actual {
		xys[i] = plotter.XY{X: predicted[i], Y: actual[i]}
		if actual[i] < min {
			min = actual[i]
		}
		if actual[i] > max {
			max = actual[i]
		}
	}
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return "", err
	}
	scatter.Color = chart.Blue
	sp.Add(scatter)
	if diag, err := plotter.NewLine(plotter.XYs{{X: min, Y: min}, {X: max, Y: max}}); err == nil {
		diag.Color = chart.Red
		sp.Add(diag)
	}

	hp := plot.New()
	hp.Title.Text = "Распределение ошибок"
	hp.X.Label.Text = "Ошибка (руб.)"

	errs := make(plotter.Values, len(actual))
	for i := range actual {
		errs[i] = actual[i] - predicted[i]
	}
	hist, err := plotter.NewHist(errs, 10)
	if err != nil {
		return "", err
	}
	hist.FillColor = chart.Green
	hp.Add(hist)

	return chart.Row(10*vg.Inch, 4*vg.Inch, sp, hp)
}
