package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/aurum/internal/adapters/storage"
	"github.com/phenrril/aurum/internal/domain"
)

// StorageEntry es una clave del almacenamiento persistente. Version sube en cada escritura
// y sirve para detectar cambios hechos por otras instancias; no se usa para resolver conflictos.
type StorageEntry struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     string `gorm:"type:text;not null"`
	Version   int64  `gorm:"not null;default:1"`
	UpdatedAt time.Time
}

type KVRepo struct {
	db           *gorm.DB
	PollInterval time.Duration
}

func NewKVRepo(db *gorm.DB) *KVRepo { return &KVRepo{db: db, PollInterval: 2 * time.Second} }

func (r *KVRepo) Migrate() error {
	return r.db.AutoMigrate(&StorageEntry{})
}

func (r *KVRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var e StorageEntry
	if err := r.db.WithContext(ctx).First(&e, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return e.Value, true, nil
}

// Set hace upsert; la última escritura gana.
func (r *KVRepo) Set(ctx context.Context, key, value string) error {
	e := StorageEntry{Key: key, Value: value, Version: 1, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      value,
			"version":    gorm.Expr("storage_entries.version + 1"),
			"updated_at": e.UpdatedAt,
		}),
	}).Create(&e).Error
}

func (r *KVRepo) Remove(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&StorageEntry{}).Error
}

// Versions devuelve clave -> versión para comparar snapshots sin traer los valores.
func (r *KVRepo) Versions(ctx context.Context) (map[string]string, error) {
	var rows []StorageEntry
	if err := r.db.WithContext(ctx).Model(&StorageEntry{}).Select("key", "version").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = strconv.FormatInt(row.Version, 10)
	}
	return out, nil
}

func (r *KVRepo) Watch(ctx context.Context, fn func(domain.StorageEvent)) (func(), error) {
	interval := r.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	value := func(ctx context.Context, key string) string {
		v, _, _ := r.Get(ctx, key)
		return v
	}
	return storage.Poll(ctx, interval, r.Versions, value, fn)
}
