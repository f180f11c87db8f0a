// Package store реализует файловое JSON-хранилище с атомарной записью.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReadJSON возвращает содержимое файла или значение по умолчанию, если файл
// отсутствует или испорчен. Значение по умолчанию в этом случае сохраняется
// на диск, ошибка чтения никогда не фатальна.
func ReadJSON[T any](path string, def T) (T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if writeErr := WriteJSON(path, def); writeErr != nil {
			return def, fmt.Errorf("запись значения по умолчанию: %w", writeErr)
		}
		return def, nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		if writeErr := WriteJSON(path, def); writeErr != nil {
			return def, fmt.Errorf("запись значения по умолчанию: %w", writeErr)
		}
		return def, nil
	}
	return value, nil
}

// WriteJSON сохраняет значение целиком: сначала во временный файл, затем
// атомарным rename на место. Читатель никогда не видит недописанный файл.
func WriteJSON[T any](path string, value T) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("создание каталога %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("сериализация %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("запись временного файла: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("переименование %s: %w", tmp, err)
	}
	return nil
}
