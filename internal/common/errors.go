// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки профилей (фильтры, лимиты, получатели)
var (
	// ErrProfileNotFound — профиль не найден в базе
	ErrProfileNotFound = errors.New("профиль не найден")
	// ErrInvalidPriceRange — минимальная цена больше максимальной
	ErrInvalidPriceRange = errors.New("минимальная цена не может быть больше максимальной")
	// ErrInvalidSupplyRange — минимальный саплай больше максимального
	ErrInvalidSupplyRange = errors.New("минимальный саплай не может быть больше максимального")
	// ErrInvalidAmount — некорректное число (ноль или отрицательное)
	ErrInvalidAmount = errors.New("значение должно быть положительным числом")
	// ErrInvalidProfileName — имя профиля не проходит валидацию
	ErrInvalidProfileName = errors.New("имя профиля: до 12 символов, только буквы, цифры и пробел")
	// ErrNoTarget — не указан получатель подарков
	ErrNoTarget = errors.New("получатель не указан")
	// ErrAmbiguousTarget — указаны одновременно user_id и chat_id получателя
	ErrAmbiguousTarget = errors.New("получатель указан дважды: и user_id, и chat_id")
	// ErrTooManyProfiles — достигнут лимит количества профилей
	ErrTooManyProfiles = errors.New("достигнут лимит количества профилей")
)

// Ошибки баланса и аккаунта
var (
	// ErrInsufficientBalance — недостаточно звёзд на балансе
	ErrInsufficientBalance = errors.New("недостаточно звёзд на балансе")
	// ErrAccountNotFound — аккаунт владельца не найден
	ErrAccountNotFound = errors.New("аккаунт не найден")
	// ErrUnknownIdentity — неизвестный отправитель подарков
	ErrUnknownIdentity = errors.New("неизвестный отправитель подарков")
)

// Ошибки юзербота
var (
	// ErrUserbotUnavailable — мост юзербота не настроен или недоступен
	ErrUserbotUnavailable = errors.New("юзербот не настроен или недоступен")
)
