package postgres

import (
	"context"

	"github.com/shopspring/decimal"
)

// ConfigRepo implements ports.ConfigRepository over the app_config table.
type ConfigRepo struct {
	db *DB
}

func NewConfigRepo(db *DB) *ConfigRepo {
	return &ConfigRepo{db: db}
}

// GetValue parses the stored text value as a decimal.
func (r *ConfigRepo) GetValue(ctx context.Context, key string) (decimal.Decimal, error) {
	var raw string
	if err := r.db.q(ctx).QueryRow(ctx, `SELECT value FROM app_config WHERE key = $1`, key).Scan(&raw); err != nil {
		return decimal.Zero, mapErr(err, "config "+key)
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, mapErr(err, "config "+key)
	}
	return v, nil
}
