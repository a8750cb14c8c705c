// Package errs определяет виды ошибок сервиса.
// Обработчики сопоставляют их с HTTP-статусами через errors.Is,
// бизнес-логика оборачивает их через fmt.Errorf("%s: %w", op, err).
package errs

import "errors"

var (
	// ErrUnauthenticated — вызов без подтверждённой личности.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrPermissionDenied — у вызывающего нет требуемой роли.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidArgument — некорректные входные данные.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUpstreamUnavailable — временный сбой внешнего провайдера, запрос можно повторить.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrInternal — неожиданная ошибка хранилища или сервиса.
	ErrInternal = errors.New("internal error")
)
