package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Cfg struct {
	Database   Database
	Logger     Logger
	HTTP       HTTP
	Search     Search
	SuperJob   SuperJob
	OpenAI     OpenAI
	Migrations Migrations
}

type Database struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

type Migrations struct {
	Path string
}

type Logger struct {
	Env   string
	Level string
}

type HTTP struct {
	Addr string
}

// Search — политика многоисточникового поиска.
// FailFast: любой пустой/ошибочный источник обрывает весь поиск.
// Workers: ширина пула воркеров по источникам (1 — строго последовательно).
type Search struct {
	FailFast bool
	Workers  int
}

// SuperJob — секрет API, приходит только из окружения.
type SuperJob struct {
	APIKey string
}

type OpenAI struct {
	KeyAI     string
	Model     string
	MaxTokens int
}

func Load() (*Cfg, error) {
	_ = godotenv.Load()

	cfg := &Cfg{
		Database: Database{
			Host:     os.Getenv("DB_HOST"),
			Port:     os.Getenv("DB_PORT"),
			Name:     os.Getenv("DB_NAME"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASS"),
		},
		Logger: Logger{
			Env:   env("ENV", "dev"),
			Level: env("LOG_LEVEL", "info"),
		},
		HTTP: HTTP{
			Addr: env("HTTP_ADDR", ":8080"),
		},
		Search: Search{
			FailFast: envBool("SEARCH_FAIL_FAST", true),
			Workers:  envInt("SEARCH_WORKERS", 1),
		},
		SuperJob: SuperJob{
			APIKey: os.Getenv("SUPERJOB_API_KEY"),
		},
		OpenAI: OpenAI{
			KeyAI:     os.Getenv("OPENAI_API_KEY"),
			Model:     env("OPENAI_MODEL", "gpt-4o"),
			MaxTokens: envInt("OPENAI_MAX_TOKENS", 500),
		},
		Migrations: Migrations{
			Path: env("MIGRATIONS_PATH", "file://migrations"),
		},
	}

	return cfg, nil
}

func env(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func envBool(key string, defaultValue bool) bool {
	v := strings.ToLower(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	return v == "true" || v == "1" || v == "yes"
}
