package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"jobAggregator/internal/normalize"
)

type VacancyRepository struct {
	db *gorm.DB
}

func NewVacancyRepository(db *gorm.DB) *VacancyRepository {
	return &VacancyRepository{db: db}
}

// Upsert сохраняет вакансию с дедупликацией по (user_id, url).
// Существующая запись обновляется свежими данными, флаг избранного не трогаем.
func (r *VacancyRepository) Upsert(v *Vacancy) error {
	var existing Vacancy
	err := r.db.Where("user_id = ? AND url = ?", v.UserID, v.URL).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(v).Error
	}
	if err != nil {
		return err
	}

	v.ID = existing.ID
	v.IsFavorite = existing.IsFavorite
	v.CreatedAt = existing.CreatedAt
	return r.db.Model(&existing).Updates(map[string]any{
		"platform":     v.Platform,
		"name":         v.Name,
		"company":      v.Company,
		"salary":       v.Salary,
		"address":      v.Address,
		"experience":   v.Experience,
		"education":    v.Education,
		"employment":   v.Employment,
		"schedule":     v.Schedule,
		"published_at": v.PublishedAt,
	}).Error
}

func (r *VacancyRepository) GetByID(id uint) (*Vacancy, error) {
	var v Vacancy
	if err := r.db.First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VacancyRepository) ListByIDs(ids []uint) ([]Vacancy, error) {
	var vacancies []Vacancy
	if len(ids) == 0 {
		return vacancies, nil
	}
	if err := r.db.Where("id IN ?", ids).Find(&vacancies).Error; err != nil {
		return nil, err
	}
	return vacancies, nil
}

func (r *VacancyRepository) ListByUser(userID uint) ([]Vacancy, error) {
	var vacancies []Vacancy
	if err := r.db.Where("user_id = ?", userID).Order("published_at DESC").Find(&vacancies).Error; err != nil {
		return nil, err
	}
	return vacancies, nil
}

func (r *VacancyRepository) ListFavorites(userID uint) ([]Vacancy, error) {
	var vacancies []Vacancy
	if err := r.db.Where("user_id = ? AND is_favorite = ?", userID, true).
		Order("published_at DESC").Find(&vacancies).Error; err != nil {
		return nil, err
	}
	return vacancies, nil
}

// ToggleFavorite переключает флаг избранного и возвращает новое состояние.
func (r *VacancyRepository) ToggleFavorite(userID, vacancyID uint) (bool, error) {
	var v Vacancy
	if err := r.db.Where("id = ? AND user_id = ?", vacancyID, userID).First(&v).Error; err != nil {
		return false, err
	}
	v.IsFavorite = !v.IsFavorite
	if err := r.db.Model(&v).Update("is_favorite", v.IsFavorite).Error; err != nil {
		return false, err
	}
	return v.IsFavorite, nil
}

type SearchQueryRepository struct {
	db *gorm.DB
}

func NewSearchQueryRepository(db *gorm.DB) *SearchQueryRepository {
	return &SearchQueryRepository{db: db}
}

// Create пишет аудит-запись поиска и привязывает найденные вакансии.
func (r *SearchQueryRepository) Create(userID uint, query, city string, platforms []normalize.Platform, vacancies []Vacancy) (*SearchQuery, error) {
	names := make([]string, 0, len(platforms))
	for _, p := range platforms {
		names = append(names, string(p))
	}

	sq := &SearchQuery{
		UserID:       userID,
		Query:        query,
		City:         city,
		Platforms:    strings.Join(names, ","),
		TotalResults: len(vacancies),
	}
	if err := r.db.Create(sq).Error; err != nil {
		return nil, err
	}
	if len(vacancies) > 0 {
		if err := r.db.Model(sq).Association("Vacancies").Append(&vacancies); err != nil {
			return nil, err
		}
	}
	return sq, nil
}

// LastByUser возвращает последний поиск пользователя вместе с вакансиями.
func (r *SearchQueryRepository) LastByUser(userID uint) (*SearchQuery, error) {
	var sq SearchQuery
	err := r.db.Preload("Vacancies").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&sq).Error
	if err != nil {
		return nil, err
	}
	return &sq, nil
}
