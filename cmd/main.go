package main

import (
	"context"

	"jobAggregator/internal/advisor"
	"jobAggregator/internal/config"
	"jobAggregator/internal/database"
	"jobAggregator/internal/logger"
	"jobAggregator/internal/migrations"
	"jobAggregator/internal/parser"
	"jobAggregator/internal/search"
	"jobAggregator/internal/server"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Logger.Env, cfg.Logger.Level)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := migrations.Run(cfg, log); err != nil {
		log.Fatal("Ошибка миграций", zap.Error(err))
	}

	db, err := database.New(cfg, log)
	if err != nil {
		log.Fatal("Ошибка подключения к БД", zap.Error(err))
	}
	defer db.Close(log)

	vacancies := database.NewVacancyRepository(db.DB)
	queries := database.NewSearchQueryRepository(db.DB)

	// Каждый источник получает собственную HTTP-сессию: заголовки и ключи
	// одного источника не должны попадать в запросы к другим.
	registry := parser.NewRegistry(
		parser.NewHeadHunter(parser.NewClient(log), log),
		parser.NewSuperJob(parser.NewClient(log), cfg.SuperJob.APIKey, log),
		parser.NewRabotaRu(parser.NewClient(log), log),
	)

	svc := search.NewService(registry, vacancies, queries, search.Policy{
		FailFast: cfg.Search.FailFast,
		Workers:  cfg.Search.Workers,
	}, log)

	adv := advisor.New(cfg.OpenAI, log)
	if !adv.Enabled() {
		log.Info("Ключ OpenAI не задан, резюме отчётов отключены")
	}

	srv := server.New(cfg, log, svc, vacancies, queries, adv)
	if err := srv.Run(context.Background()); err != nil {
		log.Fatal("Ошибка сервера", zap.Error(err))
	}
}
