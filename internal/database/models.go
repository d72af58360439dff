// Package database предоставляет модели данных и репозитории для работы с PostgreSQL.
// Использует GORM ORM с prepared statements для защиты от SQL injection.
package database

import (
	"time"

	"jobAggregator/internal/normalize"
)

// Vacancy — каноническая запись вакансии после нормализации.
// Уникальность по паре (user_id, url): повторный парсинг того же объявления
// обновляет существующую запись, а не создаёт дубликат.
type Vacancy struct {
	ID          uint                 `gorm:"primaryKey"`
	UserID      *uint                `gorm:"index;uniqueIndex:idx_user_url"` // nil — неавторизованный поиск, не сохраняется
	Platform    normalize.Platform   `gorm:"type:varchar(50);not null"`      // HeadHunter, SuperJob, Rabota.ru
	Name        string               `gorm:"type:varchar(255);not null"`     // Название вакансии
	Company     string               `gorm:"type:varchar(255);not null"`     // Компания
	Salary      *int                 // Репрезентативная зарплата, nil — не указана
	Address     string               `gorm:"type:text"`                      // Адрес свободным текстом
	Experience  normalize.Experience `gorm:"type:varchar(100);default:'not_experience'"`
	Education   normalize.Education  `gorm:"type:varchar(50);default:'not_important'"`
	Employment  normalize.Employment `gorm:"type:varchar(100);default:'not_specified'"`
	Schedule    normalize.Schedule   `gorm:"type:varchar(20);default:'not_specified'"`
	URL         string               `gorm:"type:varchar(500);not null;uniqueIndex:idx_user_url"` // Каноническая ссылка без query string
	PublishedAt time.Time            `gorm:"not null"`
	IsFavorite  bool                 `gorm:"not null;default:false"`
	CreatedAt   time.Time            `gorm:"autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"autoUpdateTime"`
}

// SearchQuery — аудит одного завершённого многоисточникового поиска.
// После создания неизменяем, кроме набора связанных вакансий.
type SearchQuery struct {
	ID           uint      `gorm:"primaryKey"`
	UserID       uint      `gorm:"index;not null"`
	Query        string    `gorm:"type:text"`        // Ключевые слова запроса
	City         string    `gorm:"type:varchar(100)"`
	Platforms    string    `gorm:"type:varchar(255)"` // Платформы через запятую
	TotalResults int       `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	Vacancies    []Vacancy `gorm:"many2many:search_query_vacancies"`
}
