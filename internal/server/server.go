package server

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"jobAggregator/internal/advisor"
	"jobAggregator/internal/analyzer"
	"jobAggregator/internal/config"
	"jobAggregator/internal/database"
	"jobAggregator/internal/logger"
	"jobAggregator/internal/normalize"
	"jobAggregator/internal/parser"
	"jobAggregator/internal/search"
	"jobAggregator/internal/stats"
)

type Server struct {
	cfg     *config.Cfg
	log     *logger.Zap
	search  *search.Service
	repo    *database.VacancyRepository
	queries *database.SearchQueryRepository
	advisor *advisor.Advisor
}

func New(cfg *config.Cfg, log *logger.Zap, svc *search.Service, repo *database.VacancyRepository, queries *database.SearchQueryRepository, adv *advisor.Advisor) *Server {
	return &Server{
		cfg:     cfg,
		log:     log,
		search:  svc,
		repo:    repo,
		queries: queries,
		advisor: adv,
	}
}

func (s *Server) Run(ctx context.Context) error {
	r := gin.New()
	r.Use(gin.Recovery())

	// Простейший лог-мидлвар
	r.Use(func(c *gin.Context) {
		s.log.Info("HTTP",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/search", s.handleSearch)
	api.GET("/vacancies", s.handleVacancies)
	api.POST("/vacancies/:id/favorite", s.handleToggleFavorite)
	api.GET("/favorites", s.handleFavorites)
	api.GET("/stats", s.handleStats)
	api.GET("/analysis/correlation", s.handleCorrelation)
	api.GET("/analysis/regression", s.handleRegression)
	api.GET("/analysis/tree", s.handleTree)

	s.log.Info("Сервер запущен", zap.String("addr", s.cfg.HTTP.Addr))
	return r.Run(s.cfg.HTTP.Addr)
}

// searchRequest — тело запроса поиска. UserID == nil — поиск без сохранения.
type searchRequest struct {
	UserID     *uint    `json:"user_id"`
	Recruiters []string `json:"recruiters" binding:"required"`
	Keywords   string   `json:"keywords" binding:"required"`
	City       string   `json:"city" binding:"required"`
	PeriodDays int      `json:"period_days"`
	Volume     int      `json:"volume"`
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := parser.SearchParams{
		Keywords:   req.Keywords,
		City:       req.City,
		PeriodDays: req.PeriodDays,
		Volume:     req.Volume,
	}
	for _, name := range req.Recruiters {
		params.Recruiters = append(params.Recruiters, normalize.Platform(name))
	}

	result, err := s.search.Run(c.Request.Context(), req.UserID, params)
	if errors.Is(err, search.ErrNoResults) {
		c.JSON(http.StatusNotFound, gin.H{"error": "по запросу ничего не найдено"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcomes := make([]gin.H, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		item := gin.H{
			"platform": o.Platform,
			"status":   o.Status.String(),
			"records":  len(o.Records),
		}
		if o.Err != nil {
			item["error"] = o.Err.Error()
		}
		outcomes = append(outcomes, item)
	}

	ids := make([]uint, 0, len(result.Vacancies))
	for _, v := range result.Vacancies {
		ids = append(ids, v.ID)
	}

	resp := gin.H{
		"found":       len(result.Records),
		"vacancy_ids": ids,
		"outcomes":    outcomes,
	}
	if result.Query != nil {
		resp["query_id"] = result.Query.ID
	}
	c.JSON(http.StatusOK, resp)
}

// handleVacancies отдаёт вакансии последнего поиска пользователя с фильтрами
// по платформе и опыту и сортировкой по зарплате (вакансии без зарплаты — в конце).
func (s *Server) handleVacancies(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		return
	}

	vacancies, err := s.lastSearchVacancies(userID)
	if err != nil {
		s.log.Error("Ошибка чтения вакансий", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	if platform := c.Query("platform"); platform != "" {
		filtered := vacancies[:0]
		for _, v := range vacancies {
			if v.Platform == normalize.Platform(platform) {
				filtered = append(filtered, v)
			}
		}
		vacancies = filtered
	}

	if experience := c.Query("experience"); experience != "" {
		filtered := vacancies[:0]
		for _, v := range vacancies {
			if v.Experience == normalize.Experience(experience) {
				filtered = append(filtered, v)
			}
		}
		vacancies = filtered
	}

	switch c.Query("sort_by") {
	case "salary_asc":
		sortBySalary(vacancies, true)
	case "salary_desc":
		sortBySalary(vacancies, false)
	}

	c.JSON(http.StatusOK, gin.H{"vacancies": vacancies})
}

// lastSearchVacancies — вакансии последнего завершённого поиска пользователя;
// если поисков ещё не было, все сохранённые вакансии пользователя.
func (s *Server) lastSearchVacancies(userID uint) ([]database.Vacancy, error) {
	query, err := s.queries.LastByUser(userID)
	if err != nil {
		return s.repo.ListByUser(userID)
	}

	ids := make([]uint, 0, len(query.Vacancies))
	for _, v := range query.Vacancies {
		ids = append(ids, v.ID)
	}
	return s.repo.ListByIDs(ids)
}

func sortBySalary(vacancies []database.Vacancy, asc bool) {
	sort.SliceStable(vacancies, func(i, j int) bool {
		a, b := vacancies[i].Salary, vacancies[j].Salary
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		if asc {
			return *a < *b
		}
		return *a > *b
	})
}

func (s *Server) handleToggleFavorite(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		return
	}

	id64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
		return
	}

	favorite, err := s.search.ToggleFavorite(userID, uint(id64))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "вакансия не найдена"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_favorite": favorite})
}

func (s *Server) handleFavorites(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		return
	}

	vacancies, err := s.search.Favorites(userID)
	if err != nil {
		s.log.Error("Ошибка чтения избранного", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vacancies": vacancies})
}

func (s *Server) handleStats(c *gin.Context) {
	vacancies, ok := s.analysisInput(c)
	if !ok {
		return
	}

	report := stats.NewEngine(vacancies, s.log).Report()

	resp := gin.H{"report": report}
	if s.advisor.Enabled() {
		if summary := s.advisor.Summarize(c.Request.Context(), report.Insights); summary != "" {
			resp["summary"] = summary
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCorrelation(c *gin.Context) {
	rows, ok := s.analysisRows(c)
	if !ok {
		return
	}
	result, ok := analyzer.Correlation(rows, s.log)
	if !ok {
		s.tooFewRows(c, analyzer.MinCorrelationRows)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRegression(c *gin.Context) {
	rows, ok := s.analysisRows(c)
	if !ok {
		return
	}
	result, ok := analyzer.Regression(rows, s.log)
	if !ok {
		s.tooFewRows(c, analyzer.MinRegressionRows)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleTree(c *gin.Context) {
	rows, ok := s.analysisRows(c)
	if !ok {
		return
	}
	result, ok := analyzer.DecisionTree(rows, analyzer.DefaultTreeOptions(), s.log)
	if !ok {
		s.tooFewRows(c, analyzer.MinTreeRows)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) analysisRows(c *gin.Context) ([]analyzer.Row, bool) {
	vacancies, ok := s.analysisInput(c)
	if !ok {
		return nil, false
	}
	return analyzer.Encode(vacancies), true
}

// analysisInput — выборка для статистики: последний поиск пользователя либо
// все его вакансии.
func (s *Server) analysisInput(c *gin.Context) ([]database.Vacancy, bool) {
	userID, ok := s.userID(c)
	if !ok {
		return nil, false
	}

	vacancies, err := s.lastSearchVacancies(userID)
	if err != nil {
		s.log.Error("Ошибка чтения выборки для анализа", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return nil, false
	}
	if len(vacancies) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "нет сохранённых вакансий"})
		return nil, false
	}
	return vacancies, true
}

func (s *Server) tooFewRows(c *gin.Context, min int) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error": "недостаточно вакансий с зарплатой для анализа",
		"min":   min,
	})
}

func (s *Server) userID(c *gin.Context) (uint, bool) {
	id64, err := strconv.ParseUint(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "параметр user_id обязателен"})
		return 0, false
	}
	return uint(id64), true
}
