package models

import "errors"

// Ошибки рабочего процесса заявок и каскадного удаления.
// Все они сообщаются вызывающему коду без частичных изменений.
var (
	ErrNotFound          = errors.New("запись не найдена")
	ErrNotAvailable      = errors.New("объект недоступен")
	ErrTypeMismatch      = errors.New("тип заявки не соответствует виду объекта")
	ErrSelfDealing       = errors.New("нельзя подать заявку на собственный объект")
	ErrDuplicatePending  = errors.New("у вас уже есть ожидающая заявка на этот объект")
	ErrForbidden         = errors.New("недостаточно прав")
	ErrAlreadyResolved   = errors.New("заявка уже обработана")
	ErrConflict          = errors.New("состояние объекта изменилось, повторите запрос")
	ErrCascadeFailed     = errors.New("не удалось выполнить каскадное удаление")
	ErrInvalidTransition = errors.New("недопустимый переход состояния объекта")
	ErrUnauthorized      = errors.New("пользователь не авторизован")
	ErrInvalidInput      = errors.New("неверный формат данных")
)
