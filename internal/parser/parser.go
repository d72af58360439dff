// Package parser содержит контракт парсера источника вакансий и адаптеры
// к конкретным площадкам (HeadHunter, SuperJob, Rabota.ru). Каждый адаптер
// приводит сырые данные источника к единой нормализованной записи Record.
package parser

import (
	"context"
	"errors"
	"fmt"

	"jobAggregator/internal/normalize"
)

var (
	// ErrNotFound — источник не вернул ни одной вакансии. Отличается от
	// сетевой ошибки: это явный «пустой» результат.
	ErrNotFound = errors.New("вакансии не найдены")

	// ErrUnknownCity — город отсутствует в таблице кодов источника,
	// поиск по этому источнику невозможен.
	ErrUnknownCity = errors.New("неизвестный город для источника")

	// ErrForbidden — источник запретил доступ, повторять бессмысленно.
	ErrForbidden = errors.New("доступ к источнику запрещён")
)

// SearchParams — разобранные параметры поискового запроса.
type SearchParams struct {
	Recruiters []normalize.Platform // выбранные источники
	Keywords   string
	City       string
	PeriodDays int // глубина поиска в днях
	Volume     int // желаемое число результатов (= число страниц для API-источников)
	Page       int // текущая страница, выставляется оркестратором, от 1
}

// Validate проверяет инварианты параметров поиска.
func (p SearchParams) Validate() error {
	if p.Volume < 1 {
		return fmt.Errorf("volume должен быть не меньше 1, получен %d", p.Volume)
	}
	if len(p.Recruiters) == 0 {
		return errors.New("не выбран ни один источник")
	}
	return nil
}

// Record — нормализованная запись вакансии, контракт между парсерами
// и хранилищем.
type Record struct {
	Platform    normalize.Platform
	Name        string
	Company     string
	Salary      *int // nil — зарплата не указана
	Address     string
	Experience  normalize.Experience
	Education   normalize.Education
	Employment  normalize.Employment
	Schedule    normalize.Schedule
	URL         string // каноническая ссылка, без query string
	PublishedAt string // формат normalize.PublishedLayout либо NotSpecifiedDate
}

// Parser — контракт парсера одного источника.
// Parse возвращает ErrNotFound при пустой выдаче и ErrUnknownCity при
// неизвестном городе; сетевые ошибки пробрасываются как есть.
type Parser interface {
	Name() normalize.Platform
	Parse(ctx context.Context, params SearchParams) ([]Record, error)
}

// Registry — диспетчеризация парсеров по платформе.
type Registry map[normalize.Platform]Parser

// NewRegistry собирает таблицу из переданных парсеров.
func NewRegistry(parsers ...Parser) Registry {
	reg := make(Registry, len(parsers))
	for _, p := range parsers {
		reg[p.Name()] = p
	}
	return reg
}

// Get возвращает парсер платформы, ok=false если платформа не зарегистрирована.
func (r Registry) Get(p normalize.Platform) (Parser, bool) {
	parser, ok := r[p]
	return parser, ok
}
