package models

import "time"

// FileRecord описывает метаданные загруженного файла.
// Поле IsPremium — снимок премиум-статуса владельца на момент загрузки,
// а не текущее значение: файлы, загруженные в премиуме, не удаляются
// чисткой независимо от того, что с подпиской стало потом.
type FileRecord struct {
	ID          int64     // Идентификатор записи
	OwnerUID    string    // Владелец файла
	StoragePath string    // Путь к файлу в blob-хранилище
	CreatedAt   time.Time // Момент загрузки
	IsPremium   bool      // Премиум-статус владельца на момент загрузки
}
