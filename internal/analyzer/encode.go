// Package analyzer выполняет продвинутый анализ числовых признаков вакансий:
// корреляции, линейную регрессию и регрессионное дерево. Вакансии без
// зарплаты в анализ не попадают; категориальные признаки кодируются
// порядковыми числами.
package analyzer

import (
	"jobAggregator/internal/database"
	"jobAggregator/internal/normalize"
)

// Row — числовое представление вакансии: зарплата и три фактора.
type Row struct {
	Salary     float64
	Experience float64 // опыт в годах: 0/1/3/6/10
	Education  float64 // уровень образования: 0-3
	Platform   float64 // код платформы
}

// featureNames — подписи факторов в порядке столбцов матрицы признаков.
var featureNames = []string{"Опыт", "Образование", "Платформа"}

// corrLabels — подписи осей корреляционной матрицы.
var corrLabels = []string{"Зарплата", "Опыт", "Образование", "Платформа"}

// Encode переводит вакансии в числовые строки, отбрасывая записи без зарплаты.
func Encode(vacancies []database.Vacancy) []Row {
	rows := make([]Row, 0, len(vacancies))
	for _, v := range vacancies {
		if v.Salary == nil {
			continue
		}
		rows = append(rows, Row{
			Salary:     float64(*v.Salary),
			Experience: normalize.ExperienceYears(v.Experience),
			Education:  normalize.EducationLevel(v.Education),
			Platform:   normalize.PlatformCode(v.Platform),
		})
	}
	return rows
}

// features возвращает значения факторов строки в порядке featureNames.
func (r Row) features() [3]float64 {
	return [3]float64{r.Experience, r.Education, r.Platform}
}
