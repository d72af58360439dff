package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobAggregator/internal/normalize"
)

func testClient() *Client {
	c := NewClient(zap.NewNop())
	// Короткие паузы, чтобы тесты повторов не тянулись десятки секунд.
	c.retryMinDelay = time.Millisecond
	c.retryMaxDelay = 5 * time.Millisecond
	return c
}

func TestSearchParamsValidate(t *testing.T) {
	valid := SearchParams{
		Recruiters: []normalize.Platform{normalize.PlatformHeadHunter},
		Keywords:   "golang",
		City:       "Москва",
		Volume:     3,
	}
	assert.NoError(t, valid.Validate())

	noVolume := valid
	noVolume.Volume = 0
	assert.Error(t, noVolume.Validate())

	noRecruiters := valid
	noRecruiters.Recruiters = nil
	assert.Error(t, noRecruiters.Validate())
}

func TestRegistry(t *testing.T) {
	hh := NewHeadHunter(testClient(), zap.NewNop())
	reg := NewRegistry(hh)

	got, ok := reg.Get(normalize.PlatformHeadHunter)
	require.True(t, ok)
	assert.Equal(t, normalize.PlatformHeadHunter, got.Name())

	_, ok = reg.Get(normalize.PlatformRabotaRu)
	assert.False(t, ok)
}

const hhFixture = `{
	"items": [{
		"name": "Go-разработчик",
		"salary": {"from": 150000, "to": 250000},
		"address": {"city": "Москва", "street": "Льва Толстого", "building": "16"},
		"employer": {"name": "Яндекс"},
		"snippet": {"requirement": "Высшее образование, опыт работы", "responsibility": "Писать сервисы, график 5/2"},
		"experience": {"name": "От 1 года до 3 лет"},
		"employment": {"name": "Полная занятость"},
		"alternate_url": "https://hh.ru/vacancy/123?from=search",
		"published_at": "2024-05-17T09:30:00+0300"
	}]
}`

func TestHeadHunterParse(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"text":   r.URL.Query().Get("text"),
			"area":   r.URL.Query().Get("area"),
			"period": r.URL.Query().Get("period"),
			"page":   r.URL.Query().Get("page"),
		}
		w.Write([]byte(hhFixture))
	}))
	defer srv.Close()

	hh := NewHeadHunter(testClient(), zap.NewNop())
	hh.baseURL = srv.URL

	records, err := hh.Parse(context.Background(), SearchParams{
		Keywords: "golang", City: "Москва", PeriodDays: 7, Volume: 3, Page: 2,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "golang", gotQuery["text"])
	assert.Equal(t, "1", gotQuery["area"]) // код Москвы у hh.ru
	assert.Equal(t, "7", gotQuery["period"])
	assert.Equal(t, "2", gotQuery["page"])

	rec := records[0]
	assert.Equal(t, normalize.PlatformHeadHunter, rec.Platform)
	assert.Equal(t, "Go-разработчик", rec.Name)
	assert.Equal(t, "Яндекс", rec.Company)
	require.NotNil(t, rec.Salary)
	assert.Equal(t, 200000, *rec.Salary)
	assert.Equal(t, "Москва, Льва Толстого, 16", rec.Address)
	assert.Equal(t, normalize.Experience1Year, rec.Experience)
	assert.Equal(t, normalize.EducationHigher, rec.Education)
	assert.Equal(t, normalize.EmploymentFullDay, rec.Employment)
	assert.Equal(t, normalize.Schedule52, rec.Schedule)
	assert.Equal(t, "https://hh.ru/vacancy/123", rec.URL)
	assert.NotEqual(t, normalize.NotSpecifiedDate, rec.PublishedAt)
}

func TestHeadHunterParse_EmptyItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	hh := NewHeadHunter(testClient(), zap.NewNop())
	hh.baseURL = srv.URL

	_, err := hh.Parse(context.Background(), SearchParams{City: "Москва", Volume: 1, Page: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHeadHunterParse_UnknownCity(t *testing.T) {
	hh := NewHeadHunter(testClient(), zap.NewNop())
	_, err := hh.Parse(context.Background(), SearchParams{City: "Урюпинск", Volume: 1, Page: 1})
	assert.ErrorIs(t, err, ErrUnknownCity)
}

func TestHeadHunterParse_BrokenItemIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Вакансия без названия и ссылки — битая запись.
		w.Write([]byte(`{"items": [{"employer": {"name": "Безымянный"}}]}`))
	}))
	defer srv.Close()

	hh := NewHeadHunter(testClient(), zap.NewNop())
	hh.baseURL = srv.URL

	_, err := hh.Parse(context.Background(), SearchParams{City: "Москва", Volume: 1, Page: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

const sjFixture = `{
	"objects": [{
		"profession": "Разработчик Go",
		"firm_name": "СуперСофт",
		"payment_from": 90000,
		"payment_to": 0,
		"address": "",
		"experience": {"title": "От 3 лет"},
		"education": {"title": "Среднее профессиональное"},
		"type_of_work": {"title": "Полный рабочий день"},
		"candidat": "Требования: график 2/2",
		"vacancyRichText": "",
		"link": "https://www.superjob.ru/vakansii/razrabotchik-456.html?from=serp",
		"date_published": 1715930000
	}]
}`

func TestSuperJobParse(t *testing.T) {
	var gotHeader, gotPage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-App-Id")
		gotPage = r.URL.Query().Get("page")
		w.Write([]byte(sjFixture))
	}))
	defer srv.Close()

	sj := NewSuperJob(testClient(), "test-key", zap.NewNop())
	sj.baseURL = srv.URL

	records, err := sj.Parse(context.Background(), SearchParams{
		Keywords: "golang", City: "Москва", PeriodDays: 7, Volume: 3, Page: 1,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "test-key", gotHeader)
	assert.Equal(t, "0", gotPage) // API нумерует страницы с нуля

	rec := records[0]
	assert.Equal(t, normalize.PlatformSuperJob, rec.Platform)
	assert.Equal(t, "Разработчик Go", rec.Name)
	require.NotNil(t, rec.Salary)
	assert.Equal(t, 90000, *rec.Salary) // нулевая верхняя граница отброшена
	assert.Equal(t, "Нет информации о адресе", rec.Address)
	assert.Equal(t, normalize.Experience3Year, rec.Experience)
	assert.Equal(t, normalize.EducationSecondary, rec.Education)
	assert.Equal(t, normalize.EmploymentFullDay, rec.Employment)
	assert.Equal(t, normalize.Schedule22, rec.Schedule)
	assert.Equal(t, "https://www.superjob.ru/vakansii/razrabotchik-456.html", rec.URL)
}

func TestSuperJobKeyDoesNotLeakToOtherSources(t *testing.T) {
	var hhHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hhHeader = r.Header.Get("X-Api-App-Id")
		w.Write([]byte(hhFixture))
	}))
	defer srv.Close()

	// Обе площадки поверх одной сессии: ключ SuperJob не должен уходить
	// в запросы к hh.ru.
	shared := testClient()
	hh := NewHeadHunter(shared, zap.NewNop())
	hh.baseURL = srv.URL
	NewSuperJob(shared, "sj-secret-key", zap.NewNop())

	_, err := hh.Parse(context.Background(), SearchParams{City: "Москва", Volume: 1, Page: 1})
	require.NoError(t, err)
	assert.Empty(t, hhHeader, "ключ SuperJob утёк в запрос к hh.ru")
	assert.Empty(t, shared.headers, "WithHeaders не должен менять исходную сессию")
}

func TestSuperJobParse_ZeroPaymentsMeanNoSalary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"objects": [{
			"profession": "Курьер",
			"firm_name": "Доставка",
			"payment_from": 0,
			"payment_to": 0,
			"link": "https://www.superjob.ru/vakansii/kurer-1.html"
		}]}`))
	}))
	defer srv.Close()

	sj := NewSuperJob(testClient(), "test-key", zap.NewNop())
	sj.baseURL = srv.URL

	records, err := sj.Parse(context.Background(), SearchParams{City: "Москва", Volume: 1, Page: 1})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Salary)
}

func rabotaListHTML(detailURL string) string {
	return `<html><body>
		<div class="r-serp__item_vacancy">
			<h3 class="vacancy-preview-card__title"><a href="` + detailURL + `?utm_source=serp">Сварщик</a></h3>
			<span class="vacancy-preview-card__company-name">ЗаводСтрой</span>
			<span class="vacancy-preview-location__address-text">Москва, Промзона 3</span>
			<div class="vacancy-preview-card__salary">80 000 — 120 000</div>
			<meta itemprop="datePosted" content="2024-05-17T09:30:00+03:00">
		</div>
		<div class="r-serp__item_vacancy">
			<h3 class="vacancy-preview-card__title"><a href="` + detailURL + `">Монтажник</a></h3>
			<div class="vacancy-preview-card__salary"></div>
		</div>
	</body></html>`
}

const rabotaDetailHTML = `<html><body><div class="vacancy-card__main">
	<div class="vacancy-requirements">Опыт от 1 года, среднее профессиональное образование</div>
	<div itemprop="description">Работа вахтой 15/15 на объекте</div>
	<div class="vacancy-conditions">Проживание за счёт компании</div>
	<meta itemprop="employmentType" content="полная занятость">
	<div class="vacancy-locations__address">Москва, ул. Заводская, 1</div>
</div></body></html>`

func newTestRabota(t *testing.T) (*RabotaRu, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/vacancy", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rabotaListHTML(srv.URL + "/vacancy/1")))
	})
	mux.HandleFunc("/vacancy/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rabotaDetailHTML))
	})

	rb := NewRabotaRu(testClient(), zap.NewNop())
	rb.host = srv.URL
	rb.jitterMin = time.Millisecond
	rb.jitterMax = 2 * time.Millisecond
	return rb, srv
}

func TestRabotaRuParse(t *testing.T) {
	rb, srv := newTestRabota(t)

	records, err := rb.Parse(context.Background(), SearchParams{
		Keywords: "сварщик", City: "Москва", PeriodDays: 7, Volume: 5,
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	rec := records[0]
	assert.Equal(t, normalize.PlatformRabotaRu, rec.Platform)
	assert.Equal(t, "Сварщик", rec.Name)
	assert.Equal(t, "ЗаводСтрой", rec.Company)
	require.NotNil(t, rec.Salary)
	// «80 000 — 120 000»: чистые числа трактуются как тысячи, вилка — среднее.
	assert.Equal(t, 100000, *rec.Salary)
	assert.Equal(t, srv.URL+"/vacancy/1", rec.URL)

	// Поля с детальной страницы.
	assert.Equal(t, normalize.Experience1Year, rec.Experience)
	assert.Equal(t, normalize.EducationSecondary, rec.Education)
	assert.Equal(t, normalize.Schedule1515, rec.Schedule)
	assert.Equal(t, normalize.EmploymentFullDay, rec.Employment)
	assert.Equal(t, "Москва, ул. Заводская, 1", rec.Address)

	// Вторая карточка: без компании и зарплаты, но с минимумом полей.
	assert.Equal(t, "Не указано", records[1].Company)
	assert.Nil(t, records[1].Salary)
}

func TestRabotaRuParse_VolumeCapsCards(t *testing.T) {
	rb, _ := newTestRabota(t)

	records, err := rb.Parse(context.Background(), SearchParams{City: "Москва", Volume: 1})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRabotaRuParse_UnknownCity(t *testing.T) {
	rb := NewRabotaRu(testClient(), zap.NewNop())
	rb.jitterMin = time.Millisecond
	rb.jitterMax = 2 * time.Millisecond

	_, err := rb.Parse(context.Background(), SearchParams{City: "Урюпинск", Volume: 1})
	assert.ErrorIs(t, err, ErrUnknownCity)
}

func TestParseRabotaSalary(t *testing.T) {
	cases := []struct {
		text string
		want *int
	}{
		{"80 000 — 120 000", intPtr(100000)},
		{"от 90 000", intPtr(90000)},
		{"", nil},
		{"по договорённости", nil},
	}
	for _, tc := range cases {
		got := parseRabotaSalary(tc.text)
		if tc.want == nil {
			assert.Nil(t, got, "текст: %q", tc.text)
			continue
		}
		require.NotNil(t, got, "текст: %q", tc.text)
		assert.Equal(t, *tc.want, *got, "текст: %q", tc.text)
	}
}

func intPtr(v int) *int { return &v }

func TestClientFetch_RetriesOnRateLimit(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testClient().Fetch(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, 3, calls)
}

func TestClientFetch_RateLimitExhaustsAttempts(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient().Fetch(context.Background(), http.MethodGet, srv.URL, nil)
	require.Error(t, err)
	assert.Equal(t, maxRetryAttempts, calls)
}

func TestClientFetch_ForbiddenFailsImmediately(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient().Fetch(context.Background(), http.MethodGet, srv.URL, nil)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 1, calls)
}

func TestPacerWait_RespectsContext(t *testing.T) {
	p := NewPacer(1)
	// Первый токен уходит сразу.
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
