package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobAggregator/internal/database"
	"jobAggregator/internal/normalize"
)

func intPtr(v int) *int { return &v }

func vacancy(platform normalize.Platform, salary *int, exp normalize.Experience) database.Vacancy {
	return database.Vacancy{
		Platform:   platform,
		Name:       "Go-разработчик",
		Company:    "ООО Рога и Копыта",
		Salary:     salary,
		Experience: exp,
	}
}

func TestBase_CountsSalariedSeparately(t *testing.T) {
	vacancies := []database.Vacancy{
		vacancy(normalize.PlatformHeadHunter, intPtr(100000), normalize.Experience1Year),
		vacancy(normalize.PlatformHeadHunter, nil, normalize.ExperienceNone),
		vacancy(normalize.PlatformSuperJob, intPtr(50000), normalize.ExperienceNone),
	}
	e := NewEngine(vacancies, zap.NewNop())

	base, ok := e.Base()
	require.True(t, ok)
	assert.Equal(t, 3, base.Total)
	assert.Equal(t, 2, base.WithSalary)
	assert.Equal(t, 75000, base.AvgSalary)
	assert.Equal(t, 50000, base.MinSalary)
	assert.Equal(t, 100000, base.MaxSalary)
}

func TestBase_EmptyInput(t *testing.T) {
	e := NewEngine(nil, zap.NewNop())
	_, ok := e.Base()
	assert.False(t, ok)
}

func TestMedian(t *testing.T) {
	// Чётное число значений — среднее двух центральных.
	assert.Equal(t, 25000.0, median([]float64{10000, 20000, 30000, 40000}))
	// Нечётное — центральное значение.
	assert.Equal(t, 20000.0, median([]float64{30000, 10000, 20000}))
	// Вход не должен меняться после вычисления.
	values := []float64{3, 1, 2}
	median(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestSalaryDistribution_RequiresMinimumRows(t *testing.T) {
	vacancies := []database.Vacancy{
		vacancy(normalize.PlatformHeadHunter, intPtr(100000), normalize.Experience1Year),
		vacancy(normalize.PlatformHeadHunter, intPtr(90000), normalize.Experience1Year),
		// Записи без зарплаты не приближают к минимуму.
		vacancy(normalize.PlatformHeadHunter, nil, normalize.ExperienceNone),
		vacancy(normalize.PlatformHeadHunter, nil, normalize.ExperienceNone),
	}
	e := NewEngine(vacancies, zap.NewNop())
	_, ok := e.SalaryDistribution()
	assert.False(t, ok)

	vacancies = append(vacancies, vacancy(normalize.PlatformSuperJob, intPtr(80000), normalize.ExperienceNone))
	e = NewEngine(vacancies, zap.NewNop())
	d, ok := e.SalaryDistribution()
	require.True(t, ok)
	assert.InDelta(t, 90000, d.Mean, 0.1)
	assert.Equal(t, 90000.0, d.Median)
	assert.Greater(t, d.StdDev, 0.0)
	assert.Greater(t, d.P25, 0.0)
	assert.GreaterOrEqual(t, d.P75, d.P25)
	assert.NotEmpty(t, d.Insights)
}

func TestDistributionInsights_OutliersThreshold(t *testing.T) {
	// Расхождение 25% — выбросы.
	insights := distributionInsights(125000, 100000, 10000)
	require.NotEmpty(t, insights)
	assert.Equal(t, "Значительные выбросы зарплат", insights[0].Title)

	// Расхождение 15% — равномерное распределение.
	insights = distributionInsights(115000, 100000, 10000)
	require.NotEmpty(t, insights)
	assert.Equal(t, "Зарплаты распределены равномерно", insights[0].Title)
}

func TestDistributionInsights_DegenerateInputsYieldNothing(t *testing.T) {
	assert.Empty(t, distributionInsights(0, 0, 0))
	assert.Empty(t, distributionInsights(100000, 0, 10000))
	assert.Empty(t, distributionInsights(0, 100000, 10000))
}

func TestDistributionInsights_VariationThresholds(t *testing.T) {
	cases := []struct {
		std  float64
		want string
	}{
		{60000, "Высокий разброс зарплат"},   // CV 60%
		{40000, "Умеренный разброс зарплат"}, // CV 40%
		{10000, "Низкий разброс зарплат"},    // CV 10%
	}
	for _, tc := range cases {
		insights := distributionInsights(100000, 100000, tc.std)
		require.Len(t, insights, 2)
		assert.Equal(t, tc.want, insights[1].Title)
	}
}

func TestSalaryByExperience_SkipsThinBuckets(t *testing.T) {
	vacancies := []database.Vacancy{
		vacancy(normalize.PlatformHeadHunter, intPtr(60000), normalize.ExperienceNone),
		vacancy(normalize.PlatformHeadHunter, intPtr(80000), normalize.ExperienceNone),
		vacancy(normalize.PlatformHeadHunter, intPtr(120000), normalize.Experience1Year),
		vacancy(normalize.PlatformHeadHunter, intPtr(140000), normalize.Experience1Year),
		// Одна запись — корзина «от 3 лет» не проходит минимум.
		vacancy(normalize.PlatformHeadHunter, intPtr(200000), normalize.Experience3Year),
	}
	e := NewEngine(vacancies, zap.NewNop())

	c, ok := e.SalaryByExperience()
	require.True(t, ok)
	require.Len(t, c.Buckets, 2)
	assert.Equal(t, normalize.ExperienceNone, c.Buckets[0].Experience)
	assert.Equal(t, normalize.Experience1Year, c.Buckets[1].Experience)
	assert.Equal(t, 70000.0, c.Buckets[0].Median)
	assert.Equal(t, 130000.0, c.Buckets[1].Median)
	assert.NotEmpty(t, c.Insights)
}

func TestPlatformComparison(t *testing.T) {
	vacancies := []database.Vacancy{
		vacancy(normalize.PlatformHeadHunter, intPtr(100000), normalize.Experience1Year),
		vacancy(normalize.PlatformHeadHunter, intPtr(120000), normalize.Experience1Year),
		vacancy(normalize.PlatformSuperJob, intPtr(55000), normalize.ExperienceNone),
	}
	e := NewEngine(vacancies, zap.NewNop())

	c, ok := e.PlatformComparison()
	require.True(t, ok)
	require.Len(t, c.Platforms, 2)
	// Сортировка по числу вакансий.
	assert.Equal(t, normalize.PlatformHeadHunter, c.Platforms[0].Platform)
	assert.Equal(t, 2, c.Platforms[0].Count)

	var titles []string
	for _, ins := range c.Insights {
		titles = append(titles, ins.Title)
	}
	assert.Contains(t, titles, "Самая популярная платформа")
	assert.Contains(t, titles, "Разрыв между платформами")
}

func TestReport_OverviewInsights(t *testing.T) {
	vacancies := []database.Vacancy{
		vacancy(normalize.PlatformHeadHunter, intPtr(50000), normalize.ExperienceNone),
		vacancy(normalize.PlatformHeadHunter, intPtr(100000), normalize.Experience1Year),
		vacancy(normalize.PlatformSuperJob, nil, normalize.ExperienceNone),
	}
	e := NewEngine(vacancies, zap.NewNop())

	r := e.Report()
	require.NotNil(t, r.Base)

	var ratio, completeness *float64
	for _, ins := range r.Insights {
		switch ins.Title {
		case "Размах зарплат":
			ratio = ins.Value
		case "Полнота зарплатных данных":
			completeness = ins.Value
		}
	}
	require.NotNil(t, ratio)
	assert.InDelta(t, 2.0, *ratio, 0.001)
	require.NotNil(t, completeness)
	assert.InDelta(t, 66.7, *completeness, 0.1)
}
