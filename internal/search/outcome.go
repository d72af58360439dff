package search

import (
	"errors"

	"jobAggregator/internal/normalize"
	"jobAggregator/internal/parser"
)

// OutcomeStatus — исход обработки одного источника.
type OutcomeStatus int

const (
	OutcomeSuccess OutcomeStatus = iota
	OutcomeEmpty                 // источник явно вернул пустую выдачу
	OutcomeTransient             // сетевой сбой или неуспешный статус, можно повторить позже
	OutcomePermanent             // неизвестный город или запрет доступа
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeTransient:
		return "transient_error"
	case OutcomePermanent:
		return "permanent_error"
	default:
		return "unknown"
	}
}

// Outcome — помеченный результат одного источника: собранные записи плюс
// статус завершения. При частичной политике записи учитываются даже если
// источник закончил ошибкой на одной из страниц.
type Outcome struct {
	Platform normalize.Platform
	Status   OutcomeStatus
	Records  []parser.Record
	Err      error
}

// classify сопоставляет ошибку парсера статусу исхода.
func classify(err error) OutcomeStatus {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, parser.ErrNotFound):
		return OutcomeEmpty
	case errors.Is(err, parser.ErrUnknownCity), errors.Is(err, parser.ErrForbidden):
		return OutcomePermanent
	default:
		return OutcomeTransient
	}
}
