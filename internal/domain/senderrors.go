package domain

import (
	"errors"
	"strings"
)

// ErrUnsupportedChannel возвращается при попытке отправки в неизвестный канал.
var ErrUnsupportedChannel = errors.New("неподдерживаемый канал доставки")

// Сигнатуры ошибок, после которых повторная доставка этому получателю невозможна.
var permanentSendSignatures = []string{
	"403",
	"forbidden",
	"blocked",
	"bot was blocked",
	"user is deactivated",
	"chat not found",
}

// IsPermanentSendError сообщает, что получатель недоступен навсегда
// (заблокировал бота или удалён) и его нужно исключить из рассылок.
func IsPermanentSendError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range permanentSendSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
