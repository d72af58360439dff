package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobAggregator/internal/database"
	"jobAggregator/internal/normalize"
	"jobAggregator/internal/parser"
)

// fakeParser — источник с заранее заданными постраничными ответами.
type fakeParser struct {
	platform normalize.Platform
	pages    map[int][]parser.Record // ответ по номеру страницы
	errs     map[int]error
	calls    []int
	bulk     bool
}

func (f *fakeParser) Name() normalize.Platform { return f.platform }

func (f *fakeParser) Parse(_ context.Context, params parser.SearchParams) ([]parser.Record, error) {
	f.calls = append(f.calls, params.Page)
	if err := f.errs[params.Page]; err != nil {
		return nil, err
	}
	return f.pages[params.Page], nil
}

func (f *fakeParser) Bulk() bool { return f.bulk }

// fakeStore — хранилище в памяти с дедупликацией по (user_id, url).
type fakeStore struct {
	vacancies map[string]*database.Vacancy
	nextID    uint
	upserts   int
	failURL   string // Upsert этой ссылки возвращает ошибку
}

func newFakeStore() *fakeStore {
	return &fakeStore{vacancies: make(map[string]*database.Vacancy)}
}

func (s *fakeStore) key(userID *uint, url string) string {
	if userID == nil {
		return "-:" + url
	}
	return fmt.Sprintf("%d:%s", *userID, url)
}

func (s *fakeStore) Upsert(v *database.Vacancy) error {
	s.upserts++
	if v.URL == s.failURL {
		return errors.New("ошибка хранилища")
	}
	key := s.key(v.UserID, v.URL)
	if existing, ok := s.vacancies[key]; ok {
		// Обновление сохраняет избранность и идентификатор.
		v.ID = existing.ID
		v.IsFavorite = existing.IsFavorite
		s.vacancies[key] = v
		return nil
	}
	s.nextID++
	v.ID = s.nextID
	s.vacancies[key] = v
	return nil
}

func (s *fakeStore) ToggleFavorite(userID, vacancyID uint) (bool, error) {
	for _, v := range s.vacancies {
		if v.ID == vacancyID && v.UserID != nil && *v.UserID == userID {
			v.IsFavorite = !v.IsFavorite
			return v.IsFavorite, nil
		}
	}
	return false, errors.New("вакансия не найдена")
}

func (s *fakeStore) ListFavorites(userID uint) ([]database.Vacancy, error) {
	var out []database.Vacancy
	for _, v := range s.vacancies {
		if v.UserID != nil && *v.UserID == userID && v.IsFavorite {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (s *fakeStore) ListByIDs(ids []uint) ([]database.Vacancy, error) {
	var out []database.Vacancy
	for _, id := range ids {
		for _, v := range s.vacancies {
			if v.ID == id {
				out = append(out, *v)
			}
		}
	}
	return out, nil
}

type fakeQueries struct {
	created []*database.SearchQuery
}

func (q *fakeQueries) Create(userID uint, query, city string, platforms []normalize.Platform, vacancies []database.Vacancy) (*database.SearchQuery, error) {
	sq := &database.SearchQuery{
		ID:           uint(len(q.created) + 1),
		UserID:       userID,
		Query:        query,
		City:         city,
		TotalResults: len(vacancies),
		Vacancies:    vacancies,
	}
	q.created = append(q.created, sq)
	return sq, nil
}

func record(platform normalize.Platform, name, url string) parser.Record {
	return parser.Record{
		Platform:    platform,
		Name:        name,
		Company:     "Компания",
		URL:         url,
		PublishedAt: "17.05.2024 09:30",
	}
}

func uintPtr(v uint) *uint { return &v }

func params(platforms ...normalize.Platform) parser.SearchParams {
	return parser.SearchParams{
		Recruiters: platforms,
		Keywords:   "golang",
		City:       "Москва",
		PeriodDays: 7,
		Volume:     2,
	}
}

func newService(store VacancyStore, queries QueryStore, policy Policy, parsers ...parser.Parser) *Service {
	return NewService(parser.NewRegistry(parsers...), store, queries, policy, zap.NewNop())
}

func TestRun_PaginatesAPISources(t *testing.T) {
	hh := &fakeParser{
		platform: normalize.PlatformHeadHunter,
		pages: map[int][]parser.Record{
			1: {record(normalize.PlatformHeadHunter, "Вакансия 1", "https://hh.ru/vacancy/1")},
			2: {record(normalize.PlatformHeadHunter, "Вакансия 2", "https://hh.ru/vacancy/2")},
		},
	}
	store := newFakeStore()
	svc := newService(store, &fakeQueries{}, Policy{FailFast: true}, hh)

	result, err := svc.Run(context.Background(), uintPtr(1), params(normalize.PlatformHeadHunter))
	require.NoError(t, err)

	// Страницы 1..Volume, по записи с каждой.
	assert.Equal(t, []int{1, 2}, hh.calls)
	assert.Len(t, result.Records, 2)
	assert.Len(t, result.Vacancies, 2)

	for _, v := range result.Vacancies {
		assert.NotEmpty(t, v.Name)
		assert.NotEmpty(t, v.Company)
		assert.NotEmpty(t, v.URL)
		assert.False(t, v.IsFavorite)
	}
}

func TestRun_BulkSourceCalledOnce(t *testing.T) {
	rb := &fakeParser{
		platform: normalize.PlatformRabotaRu,
		bulk:     true,
		pages: map[int][]parser.Record{
			0: {
				record(normalize.PlatformRabotaRu, "Вакансия 1", "https://www.rabota.ru/vacancy/1"),
				record(normalize.PlatformRabotaRu, "Вакансия 2", "https://www.rabota.ru/vacancy/2"),
			},
		},
	}
	svc := newService(newFakeStore(), &fakeQueries{}, Policy{FailFast: true}, rb)

	result, err := svc.Run(context.Background(), uintPtr(1), params(normalize.PlatformRabotaRu))
	require.NoError(t, err)
	assert.Len(t, rb.calls, 1)
	assert.Len(t, result.Records, 2)
}

func TestRun_FailFastDropsEverything(t *testing.T) {
	ok := &fakeParser{
		platform: normalize.PlatformHeadHunter,
		pages: map[int][]parser.Record{
			1: {record(normalize.PlatformHeadHunter, "Вакансия", "https://hh.ru/vacancy/1")},
			2: {record(normalize.PlatformHeadHunter, "Вакансия", "https://hh.ru/vacancy/2")},
		},
	}
	empty := &fakeParser{
		platform: normalize.PlatformSuperJob,
		errs:     map[int]error{1: parser.ErrNotFound},
	}
	store := newFakeStore()
	svc := newService(store, &fakeQueries{}, Policy{FailFast: true}, ok, empty)

	_, err := svc.Run(context.Background(), uintPtr(1), params(normalize.PlatformHeadHunter, normalize.PlatformSuperJob))
	assert.ErrorIs(t, err, ErrNoResults)
	// Ничего не сохранено: политика «всё или ничего».
	assert.Equal(t, 0, store.upserts)
}

func TestRun_PartialPolicyKeepsSuccessfulSources(t *testing.T) {
	ok := &fakeParser{
		platform: normalize.PlatformHeadHunter,
		pages: map[int][]parser.Record{
			1: {record(normalize.PlatformHeadHunter, "Вакансия 1", "https://hh.ru/vacancy/1")},
			2: {record(normalize.PlatformHeadHunter, "Вакансия 2", "https://hh.ru/vacancy/2")},
		},
	}
	broken := &fakeParser{
		platform: normalize.PlatformSuperJob,
		errs:     map[int]error{1: errors.New("сетевая ошибка")},
	}
	svc := newService(newFakeStore(), &fakeQueries{}, Policy{FailFast: false}, ok, broken)

	result, err := svc.Run(context.Background(), uintPtr(1), params(normalize.PlatformHeadHunter, normalize.PlatformSuperJob))
	require.NoError(t, err)
	assert.Len(t, result.Records, 2)

	statuses := make(map[normalize.Platform]OutcomeStatus)
	for _, o := range result.Outcomes {
		statuses[o.Platform] = o.Status
	}
	assert.Equal(t, OutcomeSuccess, statuses[normalize.PlatformHeadHunter])
	assert.Equal(t, OutcomeTransient, statuses[normalize.PlatformSuperJob])
}

func TestRun_NoRecordsAnywhere(t *testing.T) {
	empty := &fakeParser{
		platform: normalize.PlatformHeadHunter,
		errs:     map[int]error{1: parser.ErrNotFound},
	}
	svc := newService(newFakeStore(), &fakeQueries{}, Policy{FailFast: false}, empty)

	_, err := svc.Run(context.Background(), uintPtr(1), params(normalize.PlatformHeadHunter))
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestRun_UnregisteredPlatformIsPermanent(t *testing.T) {
	svc := newService(newFakeStore(), &fakeQueries{}, Policy{FailFast: false})

	_, err := svc.Run(context.Background(), uintPtr(1), params(normalize.PlatformHeadHunter))
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestRun_AnonymousSearchDoesNotPersist(t *testing.T) {
	hh := &fakeParser{
		platform: normalize.PlatformHeadHunter,
		pages: map[int][]parser.Record{
			1: {record(normalize.PlatformHeadHunter, "Вакансия", "https://hh.ru/vacancy/1")},
			2: {record(normalize.PlatformHeadHunter, "Вакансия", "https://hh.ru/vacancy/2")},
		},
	}
	store := newFakeStore()
	queries := &fakeQueries{}
	svc := newService(store, queries, Policy{FailFast: true}, hh)

	result, err := svc.Run(context.Background(), nil, params(normalize.PlatformHeadHunter))
	require.NoError(t, err)
	assert.Len(t, result.Records, 2)
	assert.Empty(t, result.Vacancies)
	assert.Equal(t, 0, store.upserts)
	assert.Empty(t, queries.created)
}

func TestRun_DeduplicatesByUserAndURL(t *testing.T) {
	hh := &fakeParser{
		platform: normalize.PlatformHeadHunter,
		pages: map[int][]parser.Record{
			1: {record(normalize.PlatformHeadHunter, "Вакансия", "https://hh.ru/vacancy/1")},
			2: {record(normalize.PlatformHeadHunter, "Вакансия", "https://hh.ru/vacancy/2")},
		},
	}
	store := newFakeStore()
	svc := newService(store, &fakeQueries{}, Policy{FailFast: true}, hh)

	userID := uintPtr(1)
	_, err := svc.Run(context.Background(), userID, params(normalize.PlatformHeadHunter))
	require.NoError(t, err)

	// Помечаем избранное и повторяем тот же поиск.
	fav, err := svc.ToggleFavorite(1, 1)
	require.NoError(t, err)
	assert.True(t, fav)

	_, err = svc.Run(context.Background(), userID, params(normalize.PlatformHeadHunter))
	require.NoError(t, err)

	// Повторный поиск не создал дубликатов и не сбросил избранность.
	assert.Len(t, store.vacancies, 2)
	favorites, err := svc.Favorites(1)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, uint(1), favorites[0].ID)
}

func TestRun_UpsertFailureSkipsRecordButContinues(t *testing.T) {
	hh := &fakeParser{
		platform: normalize.PlatformHeadHunter,
		pages: map[int][]parser.Record{
			1: {record(normalize.PlatformHeadHunter, "Сбойная", "https://hh.ru/vacancy/1")},
			2: {record(normalize.PlatformHeadHunter, "Целая", "https://hh.ru/vacancy/2")},
		},
	}
	store := newFakeStore()
	store.failURL = "https://hh.ru/vacancy/1"
	queries := &fakeQueries{}
	svc := newService(store, queries, Policy{FailFast: true}, hh)

	result, err := svc.Run(context.Background(), uintPtr(1), params(normalize.PlatformHeadHunter))
	require.NoError(t, err)
	require.Len(t, result.Vacancies, 1)
	assert.Equal(t, "Целая", result.Vacancies[0].Name)

	// Аудит записан по фактически сохранённым вакансиям.
	require.Len(t, queries.created, 1)
	assert.Equal(t, 1, queries.created[0].TotalResults)
}

func TestRun_ValidatesParams(t *testing.T) {
	svc := newService(newFakeStore(), &fakeQueries{}, Policy{FailFast: true})

	p := params(normalize.PlatformHeadHunter)
	p.Volume = 0
	_, err := svc.Run(context.Background(), uintPtr(1), p)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoResults)
}

func TestToggleFavorite_TwiceRestoresState(t *testing.T) {
	store := newFakeStore()
	userID := uintPtr(7)
	require.NoError(t, store.Upsert(&database.Vacancy{UserID: userID, URL: "https://hh.ru/vacancy/1"}))
	svc := newService(store, &fakeQueries{}, Policy{})

	first, err := svc.ToggleFavorite(7, 1)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := svc.ToggleFavorite(7, 1)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, classify(nil))
	assert.Equal(t, OutcomeEmpty, classify(parser.ErrNotFound))
	assert.Equal(t, OutcomePermanent, classify(parser.ErrUnknownCity))
	assert.Equal(t, OutcomePermanent, classify(parser.ErrForbidden))
	assert.Equal(t, OutcomeTransient, classify(errors.New("таймаут")))
}
