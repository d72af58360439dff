package analyzer

import (
	"math"
	"math/rand"
	"sort"

	"jobAggregator/internal/chart"
	"jobAggregator/internal/logger"
)

// MinTreeRows — минимум строк для анализа регрессионным деревом.
const MinTreeRows = 10

// treeSeed — фиксированное зерно генератора: разбиение и выбор примеров
// воспроизводимы между запусками.
const treeSeed = 42

// TreeOptions — ограничения роста дерева, задаются вызывающим.
type TreeOptions struct {
	MaxDepth int
	MinSplit int // минимум строк в узле для дальнейшего деления
	MinLeaf  int // минимум строк в листе
}

// DefaultTreeOptions — ограничения по умолчанию.
func DefaultTreeOptions() TreeOptions {
	return TreeOptions{MaxDepth: 5, MinSplit: 10, MinLeaf: 5}
}

func (o TreeOptions) normalized() TreeOptions {
	d := DefaultTreeOptions()
	if o.MaxDepth <= 0 {
		o.MaxDepth = d.MaxDepth
	}
	if o.MinSplit <= 0 {
		o.MinSplit = d.MinSplit
	}
	if o.MinLeaf <= 0 {
		o.MinLeaf = d.MinLeaf
	}
	return o
}

// treeNode — узел регрессионного дерева; feature == -1 обозначает лист.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	samples   int
}

func (n *treeNode) isLeaf() bool { return n.feature < 0 }

func (n *treeNode) predict(r Row) float64 {
	if n.isLeaf() {
		return n.value
	}
	if r.features()[n.feature] <= n.threshold {
		return n.left.predict(r)
	}
	return n.right.predict(r)
}

// FeatureImportance — вклад фактора в снижение дисперсии.
type FeatureImportance struct {
	Factor     string  `json:"factor"`
	Importance float64 `json:"importance"`
}

// SamplePrediction — одна строка таблицы «факт против прогноза».
type SamplePrediction struct {
	Actual    float64 `json:"actual"`
	Predicted float64 `json:"predicted"`
	AbsError  float64 `json:"abs_error"`
	PctError  float64 `json:"pct_error"`
}

// TreeResult — итог анализа деревом: метрики на отложенной выборке,
// кросс-валидация, важности факторов и таблица примеров.
type TreeResult struct {
	MSE         float64             `json:"mse"`
	MAE         float64             `json:"mae"`
	R2          float64             `json:"r2"`
	CVR2Mean    float64             `json:"cv_r2_mean"`
	CVR2Std     float64             `json:"cv_r2_std"`
	Importances []FeatureImportance `json:"importances"`
	Samples     []SamplePrediction  `json:"samples"`

	TreeChart        chart.Chart `json:"tree_chart,omitempty"`
	ImportanceChart  chart.Chart `json:"importance_chart,omitempty"`
	PerformanceChart chart.Chart `json:"performance_chart,omitempty"`
}

// DecisionTree обучает регрессионное дерево на 70% выборки и оценивает его
// на отложенных 30%, плюс 5-fold кросс-валидация по всей выборке.
func DecisionTree(rows []Row, opts TreeOptions, log *logger.Zap) (*TreeResult, bool) {
	if len(rows) < MinTreeRows {
		return nil, false
	}
	opts = opts.normalized()

	rng := rand.New(rand.NewSource(treeSeed))
	perm := rng.Perm(len(rows))
	shuffled := make([]Row, len(rows))
	for i, idx := range perm {
		shuffled[i] = rows[idx]
	}

	trainN := int(float64(len(shuffled)) * 0.7)
	if trainN < 1 {
		trainN = 1
	}
	if trainN == len(shuffled) {
		trainN--
	}
	train, test := shuffled[:trainN], shuffled[trainN:]

	importanceRaw := make([]float64, len(featureNames))
	root := growTree(train, 0, opts, importanceRaw)

	result := &TreeResult{}
	actual := make([]float64, len(test))
	predicted := make([]float64, len(test))
	for i, r := range test {
		actual[i] = r.Salary
		predicted[i] = root.predict(r)
	}
	result.MSE, result.MAE, result.R2 = regressionMetrics(actual, predicted)

	result.CVR2Mean, result.CVR2Std = crossValidate(shuffled, opts)

	var total float64
	for _, v := range importanceRaw {
		total += v
	}
	for i, name := range featureNames {
		imp := 0.0
		if total > 0 {
			imp = importanceRaw[i] / total
		}
		result.Importances = append(result.Importances, FeatureImportance{Factor: name, Importance: imp})
	}

	result.Samples = sampleTable(test, root, rng)

	renderTreeCharts(root, result, actual, predicted, log)
	return result, true
}

// growTree рекурсивно строит дерево, накапливая снижение SSE по факторам.
func growTree(rows []Row, depth int, opts TreeOptions, importance []float64) *treeNode {
	node := &treeNode{feature: -1, value: meanSalary(rows), samples: len(rows)}
	if depth >= opts.MaxDepth || len(rows) < opts.MinSplit {
		return node
	}

	parentSSE := sse(rows)
	bestFeature, bestThreshold := -1, 0.0
	bestSSE := parentSSE
	var bestLeft, bestRight []Row

	for f := range featureNames {
		for _, threshold := range splitCandidates(rows, f) {
			left, right := partition(rows, f, threshold)
			if len(left) < opts.MinLeaf || len(right) < opts.MinLeaf {
				continue
			}
			split := sse(left) + sse(right)
			if split < bestSSE {
				bestFeature, bestThreshold = f, threshold
				bestSSE = split
				bestLeft, bestRight = left, right
			}
		}
	}

	if bestFeature < 0 {
		return node
	}

	importance[bestFeature] += parentSSE - bestSSE
	node.feature = bestFeature
	node.threshold = bestThreshold
	node.left = growTree(bestLeft, depth+1, opts, importance)
	node.right = growTree(bestRight, depth+1, opts, importance)
	return node
}

// splitCandidates — середины между соседними уникальными значениями фактора.
func splitCandidates(rows []Row, feature int) []float64 {
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		values = append(values, r.features()[feature])
	}
	sort.Float64s(values)

	var candidates []float64
	for i := 1; i < len(values); i++ {
		if values[i] != values[i-1] {
			candidates = append(candidates, (values[i]+values[i-1])/2)
		}
	}
	return candidates
}

func partition(rows []Row, feature int, threshold float64) (left, right []Row) {
	for _, r := range rows {
		if r.features()[feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return left, right
}

func meanSalary(rows []Row) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rows {
		sum += r.Salary
	}
	return sum / float64(len(rows))
}

func sse(rows []Row) float64 {
	m := meanSalary(rows)
	var sum float64
	for _, r := range rows {
		d := r.Salary - m
		sum += d * d
	}
	return sum
}

func regressionMetrics(actual, predicted []float64) (mse, mae, r2 float64) {
	n := float64(len(actual))
	if n == 0 {
		return 0, 0, 0
	}

	var meanActual float64
	for _, v := range actual {
		meanActual += v
	}
	meanActual /= n

	var rss, tss float64
	for i := range actual {
		d := actual[i] - predicted[i]
		mse += d * d
		mae += math.Abs(d)
		rss += d * d
		t := actual[i] - meanActual
		tss += t * t
	}
	mse /= n
	mae /= n
	if tss > 0 {
		r2 = 1 - rss/tss
	}
	return mse, mae, r2
}

// crossValidate — 5-fold кросс-валидация R² по уже перемешанной выборке.
func crossValidate(rows []Row, opts TreeOptions) (mean, std float64) {
	const folds = 5
	n := len(rows)
	if n < folds {
		return 0, 0
	}

	var scores []float64
	foldSize := n / folds
	for k := 0; k < folds; k++ {
		start := k * foldSize
		end := start + foldSize
		if k == folds-1 {
			end = n
		}

		var train, test []Row
		test = append(test, rows[start:end]...)
		train = append(train, rows[:start]...)
		train = append(train, rows[end:]...)
		if len(train) == 0 || len(test) == 0 {
			continue
		}

		importance := make([]float64, len(featureNames))
		root := growTree(train, 0, opts, importance)

		actual := make([]float64, len(test))
		predicted := make([]float64, len(test))
		for i, r := range test {
			actual[i] = r.Salary
			predicted[i] = root.predict(r)
		}
		_, _, r2 := regressionMetrics(actual, predicted)
		scores = append(scores, r2)
	}

	if len(scores) == 0 {
		return 0, 0
	}
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))
	for _, s := range scores {
		d := s - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(scores)))
	return mean, std
}

// sampleTable — до 5 случайных примеров отложенной выборки.
func sampleTable(test []Row, root *treeNode, rng *rand.Rand) []SamplePrediction {
	count := 5
	if len(test) < count {
		count = len(test)
	}

	var samples []SamplePrediction
	for _, idx := range rng.Perm(len(test))[:count] {
		r := test[idx]
		pred := root.predict(r)
		s := SamplePrediction{
			Actual:    r.Salary,
			Predicted: pred,
			AbsError:  math.Abs(r.Salary - pred),
		}
		if r.Salary != 0 {
			s.PctError = s.AbsError / r.Salary * 100
		}
		samples = append(samples, s)
	}
	return samples
}
