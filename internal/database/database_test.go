package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestPersistentModelsMigrate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(PersistentModels()...)
	assert.NoError(t, err)

	for _, table := range []string{"users", "client_profiles", "requests"} {
		assert.True(t, db.Migrator().HasTable(table), "expected table %s", table)
	}
}

func TestGormLoggerLogMode(t *testing.T) {
	l := newGormLogger()
	changed := l.LogMode(4)
	assert.NotSame(t, l, changed)
}
