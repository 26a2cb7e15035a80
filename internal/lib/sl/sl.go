// Package sl дополняет log/slog атрибутами, общими для всех
// сервисов и обработчиков приложения.
package sl

import "log/slog"

// Err упаковывает ошибку в атрибут с ключом "error", чтобы записи
// об ошибках во всех пакетах выглядели одинаково:
//
//	log.Error("failed to record payment", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
