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

const hhBaseURL = "https://api.hh.ru/vacancies"

// HeadHunter — адаптер JSON API hh.ru. Один вызов Parse обрабатывает одну
// страницу выдачи и возвращает не более одной нормализованной записи —
// первую вакансию страницы.
type HeadHunter struct {
	client  *Client
	pacer   *Pacer
	log     *logger.Zap
	baseURL string
}

func NewHeadHunter(client *Client, log *logger.Zap) *HeadHunter {
	return &HeadHunter{
		client:  client,
		pacer:   NewPacer(30),
		log:     log,
		baseURL: hhBaseURL,
	}
}

func (h *HeadHunter) Name() normalize.Platform { return normalize.PlatformHeadHunter }

// Ответ API hh.ru: нужные поля items[].
type hhResponse struct {
	Items []hhItem `json:"items"`
}

type hhItem struct {
	Name   string `json:"name"`
	Salary *struct {
		From *int `json:"from"`
		To   *int `json:"to"`
	} `json:"salary"`
	Address *struct {
		City     string `json:"city"`
		Street   string `json:"street"`
		Building string `json:"building"`
	} `json:"address"`
	Employer struct {
		Name string `json:"name"`
	} `json:"employer"`
	Snippet struct {
		Requirement    string `json:"requirement"`
		Responsibility string `json:"responsibility"`
	} `json:"snippet"`
	Experience struct {
		Name string `json:"name"`
	} `json:"experience"`
	Employment struct {
		Name string `json:"name"`
	} `json:"employment"`
	AlternateURL string `json:"alternate_url"`
	PublishedAt  string `json:"published_at"`
}

func (h *HeadHunter) Parse(ctx context.Context, params SearchParams) ([]Record, error) {
	code, err := hhTownCode(params.City)
	if err != nil {
		return nil, err
	}

	if err := h.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("text", params.Keywords)
	query.Set("area", strconv.Itoa(code))
	query.Set("period", strconv.Itoa(params.PeriodDays))
	query.Set("page", strconv.Itoa(params.Page))

	body, err := h.client.Fetch(ctx, http.MethodGet, h.baseURL, query)
	if err != nil {
		return nil, err
	}

	var resp hhResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("разбор ответа hh.ru: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, ErrNotFound
	}

	rec, err := h.normalizeItem(resp.Items[0])
	if err != nil {
		// Битая запись — не фатально, логируем вместе с сырыми данными.
		h.log.Warn("Пропущена вакансия hh.ru",
			zap.Error(err),
			zap.ByteString("raw", body),
		)
		return nil, ErrNotFound
	}
	return []Record{rec}, nil
}

func (h *HeadHunter) normalizeItem(item hhItem) (Record, error) {
	if item.Name == "" || item.AlternateURL == "" {
		return Record{}, fmt.Errorf("вакансия без названия или ссылки")
	}

	var salary *int
	if item.Salary != nil {
		salary = normalize.RepresentativeSalary(item.Salary.From, item.Salary.To)
	}

	address := "Нет информации о адресе"
	if item.Address != nil && item.Address.City != "" {
		address = item.Address.City
		if item.Address.Street != "" {
			address += ", " + item.Address.Street
		}
		if item.Address.Building != "" {
			address += ", " + item.Address.Building
		}
	}

	scheduleText := item.Snippet.Requirement + " " + item.Snippet.Responsibility

	return Record{
		Platform:    normalize.PlatformHeadHunter,
		Name:        item.Name,
		Company:     item.Employer.Name,
		Salary:      salary,
		Address:     address,
		Experience:  normalize.ExperienceFromText(item.Experience.Name),
		Education:   normalize.EducationFromText(item.Snippet.Requirement),
		Employment:  normalize.EmploymentFromText(item.Employment.Name),
		Schedule:    normalize.ScheduleFromText(scheduleText),
		URL:         normalize.CanonicalURL(item.AlternateURL),
		PublishedAt: normalize.PublishedFromISO(item.PublishedAt),
	}, nil
}
