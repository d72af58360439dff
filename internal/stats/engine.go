package stats

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"jobAggregator/internal/chart"
	"jobAggregator/internal/database"
	"jobAggregator/internal/logger"
	"jobAggregator/internal/normalize"
)

// MinDistributionRows — минимум зарплатных записей для анализа распределения.
const MinDistributionRows = 3

// MinBucketRows — минимум зарплатных записей, чтобы корзина опыта попала
// в сравнение.
const MinBucketRows = 2

// Engine считает агрегаты по уже отфильтрованной вызывающей стороной выборке.
// Фильтры (платформа, границы зарплат, сортировка) — забота вызывающего.
type Engine struct {
	vacancies []database.Vacancy
	salaried  []float64
	log       *logger.Zap
}

func NewEngine(vacancies []database.Vacancy, log *logger.Zap) *Engine {
	e := &Engine{vacancies: vacancies, log: log}
	for _, v := range vacancies {
		if v.Salary != nil {
			e.salaried = append(e.salaried, float64(*v.Salary))
		}
	}
	return e
}

// BaseStats — базовые метрики: записи без зарплаты входят в total,
// но исключаются из зарплатных агрегатов.
type BaseStats struct {
	Total      int `json:"total"`
	WithSalary int `json:"with_salary"`
	AvgSalary  int `json:"avg_salary"`
	MinSalary  int `json:"min_salary"`
	MaxSalary  int `json:"max_salary"`
}

func (e *Engine) Base() (*BaseStats, bool) {
	if len(e.vacancies) == 0 {
		return nil, false
	}
	s := &BaseStats{
		Total:      len(e.vacancies),
		WithSalary: len(e.salaried),
	}
	if len(e.salaried) > 0 {
		s.AvgSalary = int(mean(e.salaried))
		min, max := e.salaried[0], e.salaried[0]
		for _, v := range e.salaried {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		s.MinSalary = int(min)
		s.MaxSalary = int(max)
	}
	return s, true
}

// Distribution — распределение зарплат.
type Distribution struct {
	Mean     float64     `json:"mean"`
	Median   float64     `json:"median"`
	StdDev   float64     `json:"std_dev"`
	P25      float64     `json:"p25"`
	P75      float64     `json:"p75"`
	Chart    chart.Chart `json:"chart,omitempty"`
	Insights []Insight   `json:"insights"`
}

// SalaryDistribution считает распределение зарплат; меньше
// MinDistributionRows зарплатных записей — нет результата.
func (e *Engine) SalaryDistribution() (*Distribution, bool) {
	if len(e.salaried) < MinDistributionRows {
		return nil, false
	}

	d := &Distribution{
		Mean:   mean(e.salaried),
		Median: median(e.salaried),
		StdDev: stdDev(e.salaried),
		P25:    percentile(e.salaried, 0.25),
		P75:    percentile(e.salaried, 0.75),
	}
	d.Insights = distributionInsights(d.Mean, d.Median, d.StdDev)
	d.Chart = e.renderDistribution(d)
	return d, true
}

// distributionInsights: расхождение среднего и медианы больше 20% — выбросы,
// иначе распределение равномерное; коэффициент вариации по порогам 50/30.
func distributionInsights(meanV, medianV, stdV float64) []Insight {
	var insights []Insight
	if medianV <= 0 || meanV <= 0 {
		return insights
	}

	divergence := math.Abs(meanV-medianV) / medianV * 100
	if divergence > 20 {
		insights = append(insights, Insight{
			Category: "salary",
			Title:    "Значительные выбросы зарплат",
			Description: fmt.Sprintf(
				"Среднее (%.0f) и медиана (%.0f) расходятся на %.1f%% — в выборке присутствуют значительные выбросы. Ориентируйтесь на медиану.",
				meanV, medianV, divergence),
			Value: insightValue(divergence),
			Unit:  "%",
		})
	} else {
		insights = append(insights, Insight{
			Category: "salary",
			Title:    "Зарплаты распределены равномерно",
			Description: fmt.Sprintf(
				"Среднее (%.0f) и медиана (%.0f) близки (расхождение %.1f%%) — распределение без сильных выбросов.",
				meanV, medianV, divergence),
			Value: insightValue(divergence),
			Unit:  "%",
		})
	}

	cv := stdV / meanV * 100
	var spread, advice string
	switch {
	case cv > 50:
		spread = "Высокий разброс зарплат"
		advice = "Рынок сильно неоднороден, сравнивайте вакансии по сегментам."
	case cv > 30:
		spread = "Умеренный разброс зарплат"
		advice = "Зарплаты варьируются заметно, но предсказуемо."
	default:
		spread = "Низкий разброс зарплат"
		advice = "Предложения по зарплате устойчивы."
	}
	insights = append(insights, Insight{
		Category:    "salary",
		Title:       spread,
		Description: fmt.Sprintf("Коэффициент вариации %.1f%%. %s", cv, advice),
		Value:       insightValue(cv),
		Unit:        "%",
	})

	return insights
}

func (e *Engine) renderDistribution(d *Distribution) chart.Chart {
	p := plot.New()
	p.Title.Text = "Распределение зарплат"
	p.X.Label.Text = "Зарплата (руб.)"
	p.Y.Label.Text = "Количество вакансий"

	hist, err := plotter.NewHist(plotter.Values(e.salaried), 15)
	if err != nil {
		e.log.Warn("График распределения не построен", zap.Error(err))
		return ""
	}
	hist.FillColor = chart.Blue
	p.Add(hist)

	_, yMax := histHeight(hist)
	if meanLine, err := chart.VLine(d.Mean, yMax, chart.Red); err == nil {
		p.Add(meanLine)
		p.Legend.Add(fmt.Sprintf("Среднее: %.0f", d.Mean), meanLine)
	}
	if medLine, err := chart.VLine(d.Median, yMax, chart.Green); err == nil {
		p.Add(medLine)
		p.Legend.Add(fmt.Sprintf("Медиана: %.0f", d.Median), medLine)
	}

	img, err := chart.PNG(p, 6*vg.Inch, 4*vg.Inch)
	if err != nil {
		e.log.Warn("График распределения не построен", zap.Error(err))
		return ""
	}
	return img
}

// histHeight возвращает границы высоты гистограммы для линий-отметок.
func histHeight(h *plotter.Histogram) (float64, float64) {
	_, _, _, yMax := h.DataRange()
	return 0, yMax
}

// ExperienceBucket — агрегаты одной корзины опыта.
type ExperienceBucket struct {
	Experience normalize.Experience `json:"experience"`
	Label      string               `json:"label"`
	Count      int                  `json:"count"`
	Median     float64              `json:"median"`
	Mean       float64              `json:"mean"`
}

// ExperienceComparison — зарплата в зависимости от требуемого опыта.
type ExperienceComparison struct {
	Buckets  []ExperienceBucket `json:"buckets"`
	Chart    chart.Chart        `json:"chart,omitempty"`
	Insights []Insight          `json:"insights"`
}

var experienceOrder = []normalize.Experience{
	normalize.ExperienceNone,
	normalize.Experience1Year,
	normalize.Experience3Year,
	normalize.Experience6Year,
	normalize.Experience10Year,
}

// SalaryByExperience сравнивает корзины опыта; корзина входит в сравнение
// при MinBucketRows и более зарплатных записях.
func (e *Engine) SalaryByExperience() (*ExperienceComparison, bool) {
	grouped := make(map[normalize.Experience][]float64)
	for _, v := range e.vacancies {
		if v.Salary != nil {
			grouped[v.Experience] = append(grouped[v.Experience], float64(*v.Salary))
		}
	}

	c := &ExperienceComparison{}
	for _, exp := range experienceOrder {
		salaries := grouped[exp]
		if len(salaries) < MinBucketRows {
			continue
		}
		c.Buckets = append(c.Buckets, ExperienceBucket{
			Experience: exp,
			Label:      normalize.ExperienceLabels[exp],
			Count:      len(salaries),
			Median:     median(salaries),
			Mean:       mean(salaries),
		})
	}
	if len(c.Buckets) == 0 {
		return nil, false
	}

	c.Insights = experienceInsights(c.Buckets)
	c.Chart = e.renderExperience(c)
	return c, true
}

func experienceInsights(buckets []ExperienceBucket) []Insight {
	var insights []Insight

	// Рост медианы между соседними корзинами.
	for i := 1; i < len(buckets); i++ {
		prev, cur := buckets[i-1], buckets[i]
		if prev.Median <= 0 {
			continue
		}
		growth := (cur.Median - prev.Median) / prev.Median * 100
		insights = append(insights, Insight{
			Category: "experience",
			Title:    fmt.Sprintf("Переход «%s» → «%s»", prev.Label, cur.Label),
			Description: fmt.Sprintf(
				"Медианная зарплата меняется с %.0f до %.0f (%+.1f%%).",
				prev.Median, cur.Median, growth),
			Value: insightValue(growth),
			Unit:  "%",
		})
	}

	highest, lowest := buckets[0], buckets[0]
	for _, b := range buckets[1:] {
		if b.Median > highest.Median {
			highest = b
		}
		if b.Median < lowest.Median {
			lowest = b
		}
	}
	insights = append(insights, Insight{
		Category: "experience",
		Title:    "Самая оплачиваемая ступень опыта",
		Description: fmt.Sprintf(
			"Выше всего платят в корзине «%s» (медиана %.0f), ниже всего — «%s» (медиана %.0f).",
			highest.Label, highest.Median, lowest.Label, lowest.Median),
		Value: insightValue(highest.Median),
		Unit:  "руб.",
	})

	first, last := buckets[0], buckets[len(buckets)-1]
	if len(buckets) >= 2 && first.Median > 0 {
		total := (last.Median - first.Median) / first.Median * 100
		insights = append(insights, Insight{
			Category: "experience",
			Title:    "Рост за карьеру",
			Description: fmt.Sprintf(
				"От «%s» до «%s» медианная зарплата вырастает на %.1f%%.",
				first.Label, last.Label, total),
			Value: insightValue(total),
			Unit:  "%",
		})
	}

	return insights
}

func (e *Engine) renderExperience(c *ExperienceComparison) chart.Chart {
	labels := make([]string, len(c.Buckets))
	medians := make([]float64, len(c.Buckets))
	for i, b := range c.Buckets {
		labels[i] = b.Label
		medians[i] = b.Median
	}

	p, err := chart.Bar("Зарплата в зависимости от требуемого опыта", "Медианная зарплата (руб.)", labels, medians, chart.Blue)
	if err != nil {
		e.log.Warn("График опыта не построен", zap.Error(err))
		return ""
	}
	img, err := chart.PNG(p, 6*vg.Inch, 4*vg.Inch)
	if err != nil {
		e.log.Warn("График опыта не построен", zap.Error(err))
		return ""
	}
	return img
}

// PlatformStats — агрегаты одной платформы.
type PlatformStats struct {
	Platform normalize.Platform `json:"platform"`
	Count    int                `json:"count"`
	Mean     float64            `json:"mean"`
	Median   float64            `json:"median"`
}

// PlatformComparison — сравнение платформ по числу вакансий и зарплатам.
type PlatformComparison struct {
	Platforms []PlatformStats `json:"platforms"`
	Chart     chart.Chart     `json:"chart,omitempty"`
	Insights  []Insight       `json:"insights"`
}

func (e *Engine) PlatformComparison() (*PlatformComparison, bool) {
	if len(e.vacancies) == 0 {
		return nil, false
	}

	counts := make(map[normalize.Platform]int)
	salaries := make(map[normalize.Platform][]float64)
	for _, v := range e.vacancies {
		counts[v.Platform]++
		if v.Salary != nil {
			salaries[v.Platform] = append(salaries[v.Platform], float64(*v.Salary))
		}
	}

	c := &PlatformComparison{}
	for platform, count := range counts {
		c.Platforms = append(c.Platforms, PlatformStats{
			Platform: platform,
			Count:    count,
			Mean:     mean(salaries[platform]),
			Median:   median(salaries[platform]),
		})
	}
	sort.Slice(c.Platforms, func(i, j int) bool { return c.Platforms[i].Count > c.Platforms[j].Count })

	c.Insights = platformInsights(c.Platforms)
	c.Chart = e.renderPlatforms(c)
	return c, true
}

func platformInsights(platforms []PlatformStats) []Insight {
	var insights []Insight

	popular := platforms[0]
	insights = append(insights, Insight{
		Category: "platform",
		Title:    "Самая популярная платформа",
		Description: fmt.Sprintf(
			"Больше всего вакансий на %s — %d.", popular.Platform, popular.Count),
		Value: insightValue(float64(popular.Count)),
		Unit:  "шт.",
	})

	withSalary := make([]PlatformStats, 0, len(platforms))
	for _, p := range platforms {
		if p.Mean > 0 {
			withSalary = append(withSalary, p)
		}
	}
	if len(withSalary) == 0 {
		return insights
	}

	best, worst := withSalary[0], withSalary[0]
	for _, p := range withSalary[1:] {
		if p.Mean > best.Mean {
			best = p
		}
		if p.Mean < worst.Mean {
			worst = p
		}
	}
	insights = append(insights, Insight{
		Category: "platform",
		Title:    "Самая «дорогая» платформа",
		Description: fmt.Sprintf(
			"Самая высокая средняя зарплата на %s — %.0f руб.", best.Platform, best.Mean),
		Value: insightValue(best.Mean),
		Unit:  "руб.",
	})

	if len(withSalary) >= 2 && worst.Mean > 0 {
		ratio := best.Mean / worst.Mean
		insights = append(insights, Insight{
			Category: "platform",
			Title:    "Разрыв между платформами",
			Description: fmt.Sprintf(
				"Средняя зарплата на %s в %.2f раза выше, чем на %s.",
				best.Platform, ratio, worst.Platform),
			Value: insightValue(ratio),
			Unit:  "x",
		})
	}

	return insights
}

func (e *Engine) renderPlatforms(c *PlatformComparison) chart.Chart {
	labels := make([]string, len(c.Platforms))
	means := make([]float64, len(c.Platforms))
	for i, p := range c.Platforms {
		labels[i] = string(p.Platform)
		means[i] = p.Mean
	}

	p, err := chart.Bar("Сравнение зарплат по платформам", "Средняя зарплата (руб.)", labels, means, chart.Green)
	if err != nil {
		e.log.Warn("График платформ не построен", zap.Error(err))
		return ""
	}
	img, err := chart.PNG(p, 6*vg.Inch, 4*vg.Inch)
	if err != nil {
		e.log.Warn("График платформ не построен", zap.Error(err))
		return ""
	}
	return img
}

// EducationStats — агрегаты одной корзины образования.
type EducationStats struct {
	Education normalize.Education `json:"education"`
	Label     string              `json:"label"`
	Count     int                 `json:"count"`
	Mean      float64             `json:"mean"`
}

// EducationDistribution — требования к образованию и их «цена».
type EducationDistribution struct {
	Buckets  []EducationStats `json:"buckets"`
	Chart    chart.Chart      `json:"chart,omitempty"`
	Insights []Insight        `json:"insights"`
}

func (e *Engine) EducationDistribution() (*EducationDistribution, bool) {
	if len(e.vacancies) == 0 {
		return nil, false
	}

	counts := make(map[normalize.Education]int)
	salaries := make(map[normalize.Education][]float64)
	for _, v := range e.vacancies {
		counts[v.Education]++
		if v.Salary != nil {
			salaries[v.Education] = append(salaries[v.Education], float64(*v.Salary))
		}
	}

	d := &EducationDistribution{}
	for education, count := range counts {
		d.Buckets = append(d.Buckets, EducationStats{
			Education: education,
			Label:     normalize.EducationLabels[education],
			Count:     count,
			Mean:      mean(salaries[education]),
		})
	}
	sort.Slice(d.Buckets, func(i, j int) bool { return d.Buckets[i].Count > d.Buckets[j].Count })

	d.Insights = educationInsights(d.Buckets)
	d.Chart = e.renderEducation(d)
	return d, true
}

func educationInsights(buckets []EducationStats) []Insight {
	var insights []Insight

	common := buckets[0]
	insights = append(insights, Insight{
		Category: "education",
		Title:    "Самое частое требование к образованию",
		Description: fmt.Sprintf(
			"Чаще всего требуется «%s» — %d вакансий.", common.Label, common.Count),
		Value: insightValue(float64(common.Count)),
		Unit:  "шт.",
	})

	var higher, notImportant *EducationStats
	for i := range buckets {
		switch buckets[i].Education {
		case normalize.EducationHigher:
			higher = &buckets[i]
		case normalize.EducationNotImportant:
			notImportant = &buckets[i]
		}
	}
	if higher != nil && notImportant != nil && higher.Mean > 0 && notImportant.Mean > 0 {
		ratio := higher.Mean / notImportant.Mean
		insights = append(insights, Insight{
			Category: "education",
			Title:    "Образование окупается",
			Description: fmt.Sprintf(
				"Вакансии с высшим образованием платят в %.2f раза больше, чем без требований к образованию.",
				ratio),
			Value: insightValue(ratio),
			Unit:  "x",
		})
	}

	return insights
}

func (e *Engine) renderEducation(d *EducationDistribution) chart.Chart {
	labels := make([]string, len(d.Buckets))
	counts := make([]float64, len(d.Buckets))
	for i, b := range d.Buckets {
		labels[i] = b.Label
		counts[i] = float64(b.Count)
	}

	p, err := chart.Bar("Требования к образованию", "Количество вакансий", labels, counts, chart.Blue)
	if err != nil {
		e.log.Warn("График образования не построен", zap.Error(err))
		return ""
	}
	img, err := chart.PNG(p, 6*vg.Inch, 4*vg.Inch)
	if err != nil {
		e.log.Warn("График образования не построен", zap.Error(err))
		return ""
	}
	return img
}

// Report — полный набор метрик плюс два сквозных инсайта: размах зарплат
// и полнота зарплатных данных.
type Report struct {
	Base         *BaseStats             `json:"base,omitempty"`
	Distribution *Distribution          `json:"distribution,omitempty"`
	Experience   *ExperienceComparison  `json:"experience,omitempty"`
	Platforms    *PlatformComparison    `json:"platforms,omitempty"`
	Education    *EducationDistribution `json:"education,omitempty"`
	Insights     []Insight              `json:"insights"`
}

// Report собирает все анализы; отсутствующие секции просто опущены.
func (e *Engine) Report() *Report {
	r := &Report{}
	r.Base, _ = e.Base()
	r.Distribution, _ = e.SalaryDistribution()
	r.Experience, _ = e.SalaryByExperience()
	r.Platforms, _ = e.PlatformComparison()
	r.Education, _ = e.EducationDistribution()

	if r.Base != nil {
		if r.Base.MinSalary > 0 {
			ratio := float64(r.Base.MaxSalary) / float64(r.Base.MinSalary)
			r.Insights = append(r.Insights, Insight{
				Category: "overview",
				Title:    "Размах зарплат",
				Description: fmt.Sprintf(
					"Максимальная зарплата выборки в %.2f раза выше минимальной (%d против %d).",
					ratio, r.Base.MaxSalary, r.Base.MinSalary),
				Value: insightValue(ratio),
				Unit:  "x",
			})
		}
		completeness := float64(r.Base.WithSalary) / float64(r.Base.Total) * 100
		r.Insights = append(r.Insights, Insight{
			Category: "overview",
			Title:    "Полнота зарплатных данных",
			Description: fmt.Sprintf(
				"Зарплата указана в %d из %d вакансий (%.1f%%).",
				r.Base.WithSalary, r.Base.Total, completeness),
			Value: insightValue(completeness),
			Unit:  "%",
		})
	}

	return r
}
