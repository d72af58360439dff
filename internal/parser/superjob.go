package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"jobAggregator/internal/logger"
	"jobAggregator/internal/normalize"
)

const superJobBaseURL = "https://api.superjob.ru/2.0/vacancies/"

// SuperJob — адаптер JSON API superjob.ru. API требует заголовок
// X-Api-App-Id; ключ приходит из конфигурации, никогда из кода.
// Как и HeadHunter, один вызов Parse — одна страница, не более одной записи.
type SuperJob struct {
	client  *Client
	pacer   *Pacer
	log     *logger.Zap
	baseURL string
}

func NewSuperJob(client *Client, apiKey string, log *logger.Zap) *SuperJob {
	return &SuperJob{
		client: client.WithHeaders(map[string]string{
			"X-Api-App-Id": apiKey,
			"Content-Type": "application/x-www-form-urlencoded",
		}),
		pacer:   NewPacer(30),
		log:     log,
		baseURL: superJobBaseURL,
	}
}

func (s *SuperJob) Name() normalize.Platform { return normalize.PlatformSuperJob }

type sjResponse struct {
	Objects []sjVacancy `json:"objects"`
}

type sjVacancy struct {
	Profession  string `json:"profession"`
	FirmName    string `json:"firm_name"`
	PaymentFrom int    `json:"payment_from"` // 0 — не указана
	PaymentTo   int    `json:"payment_to"`
	Address     string `json:"address"`
	Experience  struct {
		Title string `json:"title"`
	} `json:"experience"`
	Education struct {
		Title string `json:"title"`
	} `json:"education"`
	TypeOfWork struct {
		Title string `json:"title"`
	} `json:"type_of_work"`
	Candidat        string `json:"candidat"`
	VacancyRichText string `json:"vacancyRichText"`
	Link            string `json:"link"`
	DatePublished   int64  `json:"date_published"`
}

func (s *SuperJob) Parse(ctx context.Context, params SearchParams) ([]Record, error) {
	code, err := superJobTownCode(params.City)
	if err != nil {
		return nil, err
	}

	if err := s.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("keyword", params.Keywords)
	query.Set("town", strconv.Itoa(code))
	query.Set("period", strconv.Itoa(params.PeriodDays))
	query.Set("count", "1")
	query.Set("page", strconv.Itoa(params.Page-1)) // API нумерует страницы с нуля

	body, err := s.client.Fetch(ctx, http.MethodGet, s.baseURL, query)
	if err != nil {
		return nil, err
	}

	var resp sjResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("разбор ответа superjob: %w", err)
	}
	if len(resp.Objects) == 0 {
		return nil, ErrNotFound
	}

	rec, err := s.normalizeVacancy(resp.Objects[0])
	if err != nil {
		s.log.Warn("Пропущена вакансия superjob",
			zap.Error(err),
			zap.ByteString("raw", body),
		)
		return nil, ErrNotFound
	}
	return []Record{rec}, nil
}

func (s *SuperJob) normalizeVacancy(v sjVacancy) (Record, error) {
	if v.Profession == "" || v.Link == "" {
		return Record{}, fmt.Errorf("вакансия без названия или ссылки")
	}

	// В API нулевые границы означают «не указано».
	var from, to *int
	if v.PaymentFrom > 0 {
		from = &v.PaymentFrom
	}
	if v.PaymentTo > 0 {
		to = &v.PaymentTo
	}

	address := v.Address
	if address == "" {
		address = "Нет информации о адресе"
	}

	return Record{
		Platform:    normalize.PlatformSuperJob,
		Name:        v.Profession,
		Company:     v.FirmName,
		Salary:      normalize.RepresentativeSalary(from, to),
		Address:     address,
		Experience:  normalize.ExperienceFromText(v.Experience.Title),
		Education:   normalize.EducationFromText(v.Education.Title),
		Employment:  normalize.EmploymentFromText(v.TypeOfWork.Title),
		Schedule:    normalize.ScheduleFromText(v.Candidat + " " + v.VacancyRichText),
		URL:         normalize.CanonicalURL(v.Link),
		PublishedAt: normalize.PublishedFromUnix(v.DatePublished),
	}, nil
}
