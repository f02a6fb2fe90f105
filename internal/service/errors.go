package service

import "errors"

var (
	// ErrNotAdmin возвращается, когда команду вызывает не администратор.
	ErrNotAdmin = errors.New("caller is not the administrator")

	// ErrMalformedReference значит, что в тексте-маркере нет корректного [ID: ...].
	ErrMalformedReference = errors.New("malformed user reference")

	// ErrDeliveryFailed оборачивает сбой отправки конкретному получателю.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrAlreadyScheduled значит, что для пользователя уже есть активная последовательность.
	ErrAlreadyScheduled = errors.New("sequence already scheduled")

	// ErrBroadcastRunning значит, что рассылка уже выполняется.
	ErrBroadcastRunning = errors.New("broadcast already running")

	// ErrNoRecipients значит, что в базе нет ни одного получателя.
	ErrNoRecipients = errors.New("no recipients")

	// ErrAssetMissing значит, что файл бонусного материала не найден; оставшиеся
	// шаги последовательности отменяются.
	ErrAssetMissing = errors.New("bonus asset missing")
)
