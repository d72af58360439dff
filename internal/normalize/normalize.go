// Package normalize содержит общий словарь нормализации: свободный текст
// источников приводится к фиксированным наборам значений (опыт, образование,
// график, занятость), зарплатные вилки — к одному репрезентативному числу,
// ссылки — к каноническому виду для дедупликации.
package normalize

import (
	"strings"
	"time"
)

// Platform — платформа-источник вакансии.
type Platform string

const (
	PlatformHeadHunter Platform = "HeadHunter"
	PlatformSuperJob   Platform = "SuperJob"
	PlatformRabotaRu   Platform = "Rabota.ru"
)

// Experience — требуемый опыт работы.
type Experience string

const (
	ExperienceNone   Experience = "not_experience"
	Experience1Year  Experience = "1year"
	Experience3Year  Experience = "3year"
	Experience6Year  Experience = "6year"
	Experience10Year Experience = "10year"
)

// Education — требуемое образование.
type Education string

const (
	EducationNotImportant Education = "not_important"
	EducationSecondary    Education = "secondary"
	EducationHigher       Education = "higher"
	EducationHalfHigher   Education = "half_higher"
	EducationAny          Education = "any"
)

// Employment — тип занятости.
type Employment string

const (
	EmploymentNotSpecified Employment = "not_specified"
	EmploymentFullDay      Employment = "full_day"
	EmploymentNoFullDay    Employment = "no_full_day"
	EmploymentShift        Employment = "shift"
)

// Schedule — график работы.
type Schedule string

const (
	ScheduleNotSpecified Schedule = "not_specified"
	Schedule52           Schedule = "5/2"
	Schedule22           Schedule = "2/2"
	Schedule1515         Schedule = "15/15"
	Schedule2010         Schedule = "20/10"
)

// PublishedLayout — формат отображения даты публикации.
const PublishedLayout = "02.01.2006 15:04"

// NotSpecifiedDate — подстановка для неразобранной даты публикации.
const NotSpecifiedDate = "Не указана"

// ExperienceLabels — отображаемые подписи значений опыта.
var ExperienceLabels = map[Experience]string{
	ExperienceNone:   "Без опыта",
	Experience1Year:  "От 1 года",
	Experience3Year:  "От 3 лет",
	Experience6Year:  "От 6 лет",
	Experience10Year: "От 10 лет",
}

// EducationLabels — отображаемые подписи значений образования.
var EducationLabels = map[Education]string{
	EducationNotImportant: "Не имеет значения",
	EducationSecondary:    "Среднее профессиональное",
	EducationHigher:       "Высшее",
	EducationHalfHigher:   "Неполное высшее",
	EducationAny:          "Любое",
}

// rule — одно правило классификации: подстрока и значение.
// Правила проверяются по порядку, побеждает первое совпадение,
// поэтому специфичные фразы стоят раньше общих
// ("среднее профессиональное" раньше "среднее").
type educationRule struct {
	substr string
	value  Education
}

var educationRules = []educationRule{
	{"среднее профессиональное", EducationSecondary},
	{"среднее специальное", EducationSecondary},
	{"неполное высшее", EducationHalfHigher},
	{"высшее", EducationHigher},
	{"среднее", EducationSecondary},
	{"учен", EducationHigher},
	{"любое образование", EducationAny},
	{"образование любое", EducationAny},
}

// EducationFromText классифицирует свободный текст требований в значение
// образования. Пустой текст — "не имеет значения".
func EducationFromText(text string) Education {
	if text == "" {
		return EducationNotImportant
	}
	lower := strings.ToLower(text)
	for _, r := range educationRules {
		if strings.Contains(lower, r.substr) {
			return r.value
		}
	}
	return EducationNotImportant
}

type experienceRule struct {
	substr string
	value  Experience
}

// Точные фразы HH идут раньше общих подстрок Rabota.ru:
// "от 1 года до 3 лет" содержит "от 1 года".
var experienceRules = []experienceRule{
	{"более 10 лет", Experience10Year},
	{"от 10 лет", Experience10Year},
	{"более 6 лет", Experience6Year},
	{"от 6 лет", Experience6Year},
	{"от 3 до 6 лет", Experience3Year},
	{"от 3 лет", Experience3Year},
	{"от 1 года до 3 лет", Experience1Year},
	{"от 1 года", Experience1Year},
	{"без опыта", ExperienceNone},
	{"не имеет значения", ExperienceNone},
}

// ExperienceFromText классифицирует текст требуемого опыта.
func ExperienceFromText(text string) Experience {
	if text == "" {
		return ExperienceNone
	}
	lower := strings.ToLower(text)
	for _, r := range experienceRules {
		if strings.Contains(lower, r.substr) {
			return r.value
		}
	}
	return ExperienceNone
}

// scheduleTokens — литеральные обозначения графика, ищутся как подстроки
// в склеенном тексте требований/описания/условий. Первое совпадение побеждает.
var scheduleTokens = []Schedule{Schedule52, Schedule22, Schedule1515, Schedule2010}

// ScheduleFromText ищет в тексте обозначение графика работы.
func ScheduleFromText(text string) Schedule {
	if text == "" {
		return ScheduleNotSpecified
	}
	lower := strings.ToLower(text)
	for _, token := range scheduleTokens {
		if strings.Contains(lower, string(token)) {
			return token
		}
	}
	return ScheduleNotSpecified
}

// EmploymentFromText классифицирует текст типа занятости.
func EmploymentFromText(text string) Employment {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "полный рабочий день"),
		strings.Contains(lower, "полная занятость"),
		lower == "fulltime", lower == "full_time":
		return EmploymentFullDay
	case strings.Contains(lower, "сменн"):
		return EmploymentShift
	case strings.Contains(lower, "неполн"), strings.Contains(lower, "частичн"):
		return EmploymentNoFullDay
	}
	return EmploymentNotSpecified
}

// RepresentativeSalary выбирает одно число для зарплатной вилки:
// обе границы — целая часть среднего, одна граница — она сама,
// ни одной — nil (никогда не ноль).
func RepresentativeSalary(from, to *int) *int {
	switch {
	case from != nil && to != nil:
		v := (*from + *to) / 2
		return &v
	case from != nil:
		v := *from
		return &v
	case to != nil:
		v := *to
		return &v
	}
	return nil
}

// CanonicalURL отбрасывает строку запроса: всё после первого '?'.
// Результат служит естественным ключом дедупликации. Идемпотентна.
func CanonicalURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// FormatPublished форматирует дату публикации для отображения.
func FormatPublished(t time.Time) string {
	return t.Format(PublishedLayout)
}

// isoNoColonLayout — ISO-8601 с числовой зоной без двоеточия ("+0300"),
// именно так hh.ru отдаёт published_at; RFC3339 такую зону отвергает.
const isoNoColonLayout = "2006-01-02T15:04:05-0700"

// PublishedFromISO разбирает ISO-8601 метку источника и форматирует её.
// Неразобранная или пустая метка — NotSpecifiedDate.
func PublishedFromISO(iso string) string {
	if iso == "" {
		return NotSpecifiedDate
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		t, err = time.Parse(isoNoColonLayout, iso)
	}
	if err != nil {
		return NotSpecifiedDate
	}
	return FormatPublished(t)
}

// PublishedFromUnix форматирует Unix-метку источника.
func PublishedFromUnix(ts int64) string {
	if ts <= 0 {
		return NotSpecifiedDate
	}
	return FormatPublished(time.Unix(ts, 0))
}

// ParsePublished разбирает отображаемый формат даты обратно во время.
// Для персистентности: ошибка разбора означает, что вызывающий подставит
// текущее время, т.к. запись всегда требует непустой метки.
func ParsePublished(s string) (time.Time, error) {
	return time.ParseInLocation(PublishedLayout, s, time.Local)
}

// ExperienceYears — порядковое кодирование опыта в годах для анализа.
func ExperienceYears(e Experience) float64 {
	switch e {
	case Experience1Year:
		return 1
	case Experience3Year:
		return 3
	case Experience6Year:
		return 6
	case Experience10Year:
		return 10
	}
	return 0
}

// EducationLevel — порядковый уровень образования (0-3).
func EducationLevel(e Education) float64 {
	switch e {
	case EducationSecondary:
		return 1
	case EducationHalfHigher:
		return 2
	case EducationHigher:
		return 3
	}
	return 0 // not_important, any
}

// PlatformCode — числовой код платформы для анализа.
func PlatformCode(p Platform) float64 {
	switch p {
	case PlatformHeadHunter:
		return 0
	case PlatformSuperJob:
		return 1
	case PlatformRabotaRu:
		return 2
	}
	return -1
}
