package parser

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"jobAggregator/internal/logger"
	"jobAggregator/internal/normalize"
)

// RabotaRu — адаптер HTML-выдачи rabota.ru: разбирает карточки списка и
// дотягивает расширенные поля со страницы каждой вакансии. Перед каждым
// обращением выдерживает случайную паузу, чтобы не попасть под блокировку.
type RabotaRu struct {
	client *Client
	log    *logger.Zap

	// host переопределяется в тестах; пустое значение — реальная площадка.
	host      string
	jitterMin time.Duration
	jitterMax time.Duration
}

func NewRabotaRu(client *Client, log *logger.Zap) *RabotaRu {
	return &RabotaRu{
		client:    client,
		log:       log,
		jitterMin: 3 * time.Second,
		jitterMax: 7 * time.Second,
	}
}

func (r *RabotaRu) Name() normalize.Platform { return normalize.PlatformRabotaRu }

// Bulk сообщает оркестратору, что источник отдаёт до Volume записей одним
// вызовом, без постраничного цикла.
func (r *RabotaRu) Bulk() bool { return true }

// Parse выполняет один запрос к списку и собирает до params.Volume записей.
// Volume здесь — потолок карточек одной страницы, а не число страниц.
func (r *RabotaRu) Parse(ctx context.Context, params SearchParams) ([]Record, error) {
	searchURL, err := r.searchURL(params.City)
	if err != nil {
		return nil, err
	}

	if err := SleepJitter(ctx, r.jitterMin, r.jitterMax); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("query", params.Keywords)
	query.Set("period", strconv.Itoa(params.PeriodDays))

	body, err := r.client.Fetch(ctx, http.MethodGet, searchURL, query)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("разбор HTML rabota.ru: %w", err)
	}

	cards := doc.Find("div.r-serp__item_vacancy")
	if cards.Length() == 0 {
		return nil, ErrNotFound
	}

	var records []Record
	cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if len(records) >= params.Volume {
			return false
		}
		rec, err := r.parseCard(ctx, card)
		if err != nil {
			html, _ := card.Html()
			r.log.Warn("Пропущена карточка rabota.ru",
				zap.Error(err),
				zap.String("raw", html),
			)
			return true
		}
		records = append(records, rec)
		return true
	})

	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

func (r *RabotaRu) searchURL(city string) (string, error) {
	if r.host != "" {
		return r.host + "/vacancy", nil
	}
	prefix, err := rabotaTownPrefix(city)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s.rabota.ru/vacancy", prefix), nil
}

// parseCard извлекает поля карточки списка и обогащает их детальной страницей.
func (r *RabotaRu) parseCard(ctx context.Context, card *goquery.Selection) (Record, error) {
	titleElem := card.Find("h3.vacancy-preview-card__title").First()
	title := strings.TrimSpace(titleElem.Text())
	if title == "" {
		return Record{}, fmt.Errorf("карточка без названия")
	}

	link, _ := titleElem.Find("a").First().Attr("href")
	if link == "" {
		return Record{}, fmt.Errorf("карточка без ссылки")
	}
	if !strings.HasPrefix(link, "http") {
		link = "https://www.rabota.ru" + link
	}

	company := strings.TrimSpace(card.Find("span.vacancy-preview-card__company-name").First().Text())
	if company == "" {
		company = "Не указано"
	}

	address := strings.TrimSpace(card.Find("span.vacancy-preview-location__address-text").First().Text())
	if address == "" {
		address = "Нет информации о адресе"
	}

	salary := parseRabotaSalary(card.Find("div.vacancy-preview-card__salary").First().Text())

	publishedISO, _ := card.Find("meta[itemprop=datePosted]").First().Attr("content")

	rec := Record{
		Platform:    normalize.PlatformRabotaRu,
		Name:        title,
		Company:     company,
		Salary:      salary,
		Address:     address,
		Experience:  normalize.ExperienceNone,
		Education:   normalize.EducationNotImportant,
		Employment:  normalize.EmploymentNotSpecified,
		Schedule:    normalize.ScheduleNotSpecified,
		URL:         normalize.CanonicalURL(link),
		PublishedAt: normalize.PublishedFromISO(publishedISO),
	}

	r.enrichFromDetail(ctx, link, &rec)
	return rec, nil
}

// enrichFromDetail дотягивает опыт/образование/график/занятость со страницы
// вакансии. Сбой детальной страницы не фатален: карточка уже дала минимум.
func (r *RabotaRu) enrichFromDetail(ctx context.Context, link string, rec *Record) {
	if err := SleepJitter(ctx, r.jitterMin, r.jitterMax); err != nil {
		return
	}

	body, err := r.client.Fetch(ctx, http.MethodGet, link, nil)
	if err != nil {
		r.log.Warn("Детальная страница rabota.ru недоступна",
			zap.String("url", link), zap.Error(err))
		return
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		r.log.Warn("Разбор детальной страницы rabota.ru",
			zap.String("url", link), zap.Error(err))
		return
	}

	main := doc.Find("div.vacancy-card__main").First()
	if main.Length() == 0 {
		return
	}

	requirements := strings.TrimSpace(main.Find("div.vacancy-requirements").First().Text())
	description := strings.TrimSpace(main.Find("div[itemprop=description]").First().Text())
	conditions := strings.TrimSpace(main.Find("div.vacancy-conditions").First().Text())

	if requirements != "" {
		rec.Experience = normalize.ExperienceFromText(requirements)
		rec.Education = normalize.EducationFromText(requirements)
	}
	rec.Schedule = normalize.ScheduleFromText(requirements + " " + description + " " + conditions)

	if employment, ok := main.Find("meta[itemprop=employmentType]").First().Attr("content"); ok {
		rec.Employment = normalize.EmploymentFromText(employment)
	}
	if detailAddress := strings.TrimSpace(main.Find("div.vacancy-locations__address").First().Text()); detailAddress != "" {
		rec.Address = detailAddress
	}
}

// parseRabotaSalary разбирает зарплатный текст карточки: числа без примесей
// трактуются как тысячи рублей, вилка сводится к среднему.
func parseRabotaSalary(text string) *int {
	var numbers []int
	for _, word := range strings.Fields(text) {
		if n, err := strconv.Atoi(word); err == nil && n != 0 {
			numbers = append(numbers, n*1000)
		}
	}

	switch len(numbers) {
	case 0:
		return nil
	case 1:
		return normalize.RepresentativeSalary(&numbers[0], nil)
	default:
		return normalize.RepresentativeSalary(&numbers[0], &numbers[1])
	}
}
