// Package search оркестрирует многоисточниковый поиск: рассылает запрос
// выбранным парсерам, собирает помеченные исходы, применяет политику
// fail-fast либо частичного успеха и сохраняет нормализованные записи.
package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"jobAggregator/internal/database"
	"jobAggregator/internal/logger"
	"jobAggregator/internal/normalize"
	"jobAggregator/internal/parser"
)

// ErrNoResults — поиск целиком сведён к «ничего не найдено»: при fail-fast
// политике его вызывает любой неуспешный источник.
var ErrNoResults = errors.New("поиск не дал результатов")

// VacancyStore — операции хранилища, нужные оркестратору.
type VacancyStore interface {
	Upsert(v *database.Vacancy) error
	ToggleFavorite(userID, vacancyID uint) (bool, error)
	ListFavorites(userID uint) ([]database.Vacancy, error)
	ListByIDs(ids []uint) ([]database.Vacancy, error)
}

// QueryStore — аудит завершённых поисков.
type QueryStore interface {
	Create(userID uint, query, city string, platforms []normalize.Platform, vacancies []database.Vacancy) (*database.SearchQuery, error)
}

// Policy — политика агрегации исходов по источникам.
type Policy struct {
	// FailFast воспроизводит поведение «всё или ничего»: любой источник
	// со статусом отличным от success обрывает весь поиск.
	FailFast bool
	// Workers — ширина пула по источникам, 1 — строго последовательно.
	Workers int
}

// Service — сервис поиска вакансий.
type Service struct {
	registry parser.Registry
	store    VacancyStore
	queries  QueryStore
	policy   Policy
	log      *logger.Zap
	now      func() time.Time
}

func NewService(registry parser.Registry, store VacancyStore, queries QueryStore, policy Policy, log *logger.Zap) *Service {
	if policy.Workers < 1 {
		policy.Workers = 1
	}
	return &Service{
		registry: registry,
		store:    store,
		queries:  queries,
		policy:   policy,
		log:      log,
		now:      time.Now,
	}
}

// Result — итог поиска: сохранённые вакансии (пусто для неавторизованного
// пользователя), собранные записи и диагностика по источникам.
type Result struct {
	Records   []parser.Record
	Vacancies []database.Vacancy
	Outcomes  []Outcome
	Query     *database.SearchQuery
}

// Run выполняет поиск по всем выбранным источникам. userID == nil —
// неавторизованный поиск, записи возвращаются, но не сохраняются.
func (s *Service) Run(ctx context.Context, userID *uint, params parser.SearchParams) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	outcomes := s.collect(ctx, params)

	result := &Result{Outcomes: outcomes}
	for _, o := range outcomes {
		if s.policy.FailFast && o.Status != OutcomeSuccess {
			s.log.Info("Источник не дал результата, поиск прерван",
				zap.String("platform", string(o.Platform)),
				zap.String("status", o.Status.String()),
				zap.Error(o.Err),
			)
			return nil, ErrNoResults
		}
		result.Records = append(result.Records, o.Records...)
	}

	if len(result.Records) == 0 {
		return nil, ErrNoResults
	}

	if userID != nil {
		if err := s.persist(userID, params, result); err != nil {
			return nil, err
		}
	} else {
		s.log.Info("Пользователь не авторизован, вакансии не сохраняются")
	}

	return result, nil
}

// collect опрашивает источники пулом воркеров. Внутри источника запросы
// строго последовательны с собственным темпом, между источниками состояние
// не разделяется.
func (s *Service) collect(ctx context.Context, params parser.SearchParams) []Outcome {
	sem := make(chan struct{}, s.policy.Workers)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []Outcome
	)

	for _, platform := range params.Recruiters {
		src, ok := s.registry.Get(platform)
		if !ok {
			mu.Lock()
			outcomes = append(outcomes, Outcome{
				Platform: platform,
				Status:   OutcomePermanent,
				Err:      errors.New("парсер для платформы не зарегистрирован"),
			})
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(src parser.Parser) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			o := s.collectSource(ctx, src, params)
			mu.Lock()
			outcomes = append(outcomes, o)
			mu.Unlock()
		}(src)
	}

	wg.Wait()
	return outcomes
}

// BulkSource — источник, отдающий до Volume записей одним вызовом
// (HTML-выдача); остальные опрашиваются постранично: страницы 1..Volume,
// каждая даёт не более одной записи.
type BulkSource interface {
	Bulk() bool
}

func (s *Service) collectSource(ctx context.Context, src parser.Parser, params parser.SearchParams) Outcome {
	o := Outcome{Platform: src.Name()}

	if b, ok := src.(BulkSource); ok && b.Bulk() {
		records, err := src.Parse(ctx, params)
		o.Records = records
		o.Status = classify(err)
		o.Err = err
		return o
	}

	for page := 1; page <= params.Volume; page++ {
		pageParams := params
		pageParams.Page = page

		records, err := src.Parse(ctx, pageParams)
		if err != nil {
			o.Status = classify(err)
			o.Err = err
			return o
		}
		o.Records = append(o.Records, records...)
	}

	o.Status = OutcomeSuccess
	return o
}

// persist сохраняет записи с дедупликацией и пишет аудит поиска.
func (s *Service) persist(userID *uint, params parser.SearchParams, result *Result) error {
	for _, rec := range result.Records {
		v := s.toVacancy(userID, rec)
		if err := s.store.Upsert(v); err != nil {
			// Сбой одной записи не валит поиск, логируем с данными.
			s.log.Error("Ошибка сохранения вакансии",
				zap.String("url", rec.URL),
				zap.Error(err),
			)
			continue
		}
		result.Vacancies = append(result.Vacancies, *v)
	}

	query, err := s.queries.Create(*userID, params.Keywords, params.City, params.Recruiters, result.Vacancies)
	if err != nil {
		s.log.Error("Ошибка записи аудита поиска", zap.Error(err))
		return nil
	}
	result.Query = query
	return nil
}

// toVacancy превращает нормализованную запись в модель хранилища.
// Неразобранная дата публикации заменяется текущим временем: записи всегда
// нужна непустая метка.
func (s *Service) toVacancy(userID *uint, rec parser.Record) *database.Vacancy {
	publishedAt, err := normalize.ParsePublished(rec.PublishedAt)
	if err != nil {
		publishedAt = s.now()
	}

	address := rec.Address
	if address == "" {
		address = "Нет информации о адресе"
	}

	return &database.Vacancy{
		UserID:      userID,
		Platform:    rec.Platform,
		Name:        rec.Name,
		Company:     rec.Company,
		Salary:      rec.Salary,
		Address:     address,
		Experience:  rec.Experience,
		Education:   rec.Education,
		Employment:  rec.Employment,
		Schedule:    rec.Schedule,
		URL:         rec.URL,
		PublishedAt: publishedAt,
		IsFavorite:  false,
	}
}

// ToggleFavorite переключает флаг избранного у вакансии пользователя.
func (s *Service) ToggleFavorite(userID, vacancyID uint) (bool, error) {
	return s.store.ToggleFavorite(userID, vacancyID)
}

// Favorites возвращает избранные вакансии пользователя.
func (s *Service) Favorites(userID uint) ([]database.Vacancy, error) {
	return s.store.ListFavorites(userID)
}
