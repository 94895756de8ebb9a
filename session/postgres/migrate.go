package postgres

import (
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"

	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"

	"github.com/MrEthical07/goSession/session/postgres/migrations"
)

// Migrate applies every pending schema migration to the database at dsn.
// dsn uses the pgx5:// scheme. An up-to-date schema is not an error.
func Migrate(dsn string) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return oops.In("postgres").Wrapf(err, "opening embedded migrations")
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return oops.In("postgres").Wrapf(err, "connecting migration driver")
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.In("postgres").Wrapf(err, "applying migrations")
	}
	return nil
}

// MigrationDSN rewrites a postgres:// or postgresql:// URL to the pgx5://
// scheme the migration driver registers.
func MigrationDSN(url string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if rest, ok := strings.CutPrefix(url, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return url
}
