package repository

import (
	"context"
	"embed"
	"time"
)

// Migrations встроенные goose-миграции репозитория
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir каталог миграций внутри встроенной ФС
const MigrationsDir = "migrations"

// Run сохранённый прогон построения топологии
type Run struct {
	ID            string
	Name          string
	CreatedBy     string
	InputHash     string
	StreetCount   int
	AssetCount    int
	AssetsServed  int
	AssetsFailed  int
	Coverage      float64 // served / total
	TrenchLength  float64
	TotalDemandKW float64
	DurationMs    int64
	Stats         []byte // JSON
	Result        []byte // JSON, полный ответ для выгрузки
	CreatedAt     time.Time
}

// RunSummary краткая запись прогона для списков
type RunSummary struct {
	ID            string
	Name          string
	CreatedBy     string
	AssetCount    int
	AssetsServed  int
	TrenchLength  float64
	TotalDemandKW float64
	DurationMs    int64
	CreatedAt     time.Time
}

// ListOptions опции постраничного списка; новые прогоны идут первыми
type ListOptions struct {
	Limit  int
	Offset int
}

// RunRepository интерфейс хранилища прогонов
type RunRepository interface {
	Create(ctx context.Context, run *Run) error
	GetByID(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, opts *ListOptions) ([]*RunSummary, int64, error)
	Delete(ctx context.Context, id string) error

	// DeleteOlderThan удаляет прогоны старше порога, возвращает число удалённых
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
