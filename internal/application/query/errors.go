// Package query contains read operations (CQRS - Queries).
// Каждый обработчик загружает снимок из хранилища, вызывает движок
// оценок и по возможности отдаёт результат из кеша отчётов.
package query

import (
	"context"
	"errors"

	"github.com/campus-hub/grade-engine/internal/domain/shared"
)

// storeError сохраняет вид доменной ошибки и помечает остальные как
// недоступность хранилища.
func storeError(op string, err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return shared.WrapError("query", op, de.Kind, de.Message, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.WrapError("query", op, shared.ErrTimeout, "curriculum store timed out", err)
	}
	return shared.WrapError("query", op, shared.ErrServiceUnavailable, "curriculum store unavailable", err)
}
