// Package purchase выполняет одну попытку купить подарок от имени одной
// личности с ограниченными ретраями.
// errors.go — классификация ошибок отправки, от неё зависит политика ретраев.
package purchase

import (
	"fmt"
	"time"
)

// FloodError — флуд-контроль Telegram: обязательная пауза перед
// следующим запросом. Пауза не тратит бюджет попыток.
type FloodError struct {
	RetryAfter time.Duration
}

func (e *FloodError) Error() string {
	return fmt.Sprintf("флуд-контроль: пауза %s", e.RetryAfter)
}

// PermanentError — невосстановимая ошибка (bad request, forbidden,
// отозванная авторизация). Ретраи бессмысленны.
type PermanentError struct {
	Reason string
	Err    error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("перманентная ошибка: %s", e.Reason)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}
