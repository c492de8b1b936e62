package migrations

import (
	"fmt"
	"sort"

	"github.com/glocktrack/glocktrack/internal/logger"
	"gorm.io/gorm"
)

// Migration represents a database migration
type Migration struct {
	ID   string
	Up   func(*gorm.DB) error
	Down func(*gorm.DB) error
}

var migrations = make(map[string]Migration)

// Register adds a new migration to the registry
func Register(id string, up, down func(*gorm.DB) error) {
	migrations[id] = Migration{
		ID:   id,
		Up:   up,
		Down: down,
	}
}

// MigrationRecord represents a record of executed migrations
type MigrationRecord struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt int64  `gorm:"autoCreateTime"`
}

// RunMigrations executes all pending migrations
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var ids []string
	for id := range migrations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var executed []MigrationRecord
	if err := db.Find(&executed).Error; err != nil {
		return fmt.Errorf("failed to get executed migrations: %w", err)
	}

	executedMap := make(map[string]bool)
	for _, m := range executed {
		executedMap[m.ID] = true
	}

	for _, id := range ids {
		if executedMap[id] {
			continue
		}
		migration := migrations[id]
		logger.Info("Running migration", "id", id)
		if err := migration.Up(db); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", id, err)
		}

		record := MigrationRecord{ID: id}
		if err := db.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record migration %s: %w", id, err)
		}
		logger.Info("Completed migration", "id", id)
	}

	return nil
}

func init() {
	// Latest-by-type and the chart series both scan per type in timestamp
	// order; the single-column indexes from AutoMigrate don't cover that.
	Register("202603010001_logs_type_timestamp_idx",
		func(db *gorm.DB) error {
			return db.Exec("CREATE INDEX IF NOT EXISTS idx_glucose_logs_type_timestamp ON glucose_logs(type, timestamp)").Error
		},
		func(db *gorm.DB) error {
			return db.Exec("DROP INDEX IF EXISTS idx_glucose_logs_type_timestamp").Error
		},
	)
}
