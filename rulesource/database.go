package rulesource

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/aalemi-dev/apmbridge/rules"
)

// RuleTableRow is one stored version of a named rule table.
type RuleTableRow struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:128;index:idx_rule_tables_name_created,priority:1;not null"`
	Version   string    `gorm:"size:64;not null"`
	Document  string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_rule_tables_name_created,priority:2"`
}

// DatabaseSource reads the newest row of a named rule table from Postgres or MySQL.
type DatabaseSource struct {
	db     *gorm.DB
	driver string
	table  string
	name   string
}

// NewDatabaseSource opens a gorm connection for driver ("postgres" or "mysql").
func NewDatabaseSource(driver string, cfg DatabaseConfig) (*DatabaseSource, error) {
	if cfg.Host == "" || cfg.DbName == "" {
		return nil, fmt.Errorf("%w: database host and name", ErrMissingLocation)
	}

	var dialector gorm.Dialector
	switch driver {
	case KindPostgres:
		dialector = postgres.Open(postgresDSN(cfg))
	case KindMySQL:
		dialector = mysql.Open(mysqlDSN(cfg))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return newDatabaseSource(db, driver, cfg)
}

func newDatabaseSource(db *gorm.DB, driver string, cfg DatabaseConfig) (*DatabaseSource, error) {
	s := &DatabaseSource{db: db, driver: driver, table: cfg.Table, name: cfg.Name}
	if s.table == "" {
		s.table = DefaultDatabaseTable
	}
	if s.name == "" {
		s.name = DefaultTableName
	}
	if cfg.AutoMigrate {
		if err := s.Migrate(context.Background()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func postgresDSN(cfg DatabaseConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	port := cfg.Port
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, port, cfg.User, cfg.Password, cfg.DbName, sslMode)
}

func mysqlDSN(cfg DatabaseConfig) string {
	port := cfg.Port
	if port == "" {
		port = "3306"
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, port, cfg.DbName)
	if cfg.TLS != "" {
		dsn += "&tls=" + cfg.TLS
	}
	return dsn
}

func (d *DatabaseSource) Name() string {
	return d.driver + ":" + d.table + "/" + d.name
}

// Migrate creates the rule table if needed.
func (d *DatabaseSource) Migrate(ctx context.Context) error {
	if err := d.db.WithContext(ctx).Table(d.table).AutoMigrate(&RuleTableRow{}); err != nil {
		return translateDatabaseError(err)
	}
	return nil
}

// Fetch returns the document of the newest row for the configured name.
func (d *DatabaseSource) Fetch(ctx context.Context) ([]byte, error) {
	var row RuleTableRow
	err := d.db.WithContext(ctx).
		Table(d.table).
		Where("name = ?", d.name).
		Order("created_at DESC").
		Order("id DESC").
		First(&row).Error
	if err != nil {
		return nil, translateDatabaseError(err)
	}
	return nonEmpty([]byte(row.Document))
}

// Publish validates document and stores it as the newest version of the configured
// table.
func (d *DatabaseSource) Publish(ctx context.Context, document []byte) error {
	e, err := rules.Load(document)
	if err != nil {
		return err
	}
	row := RuleTableRow{Name: d.name, Version: e.Version(), Document: string(document)}
	return translateDatabaseError(d.db.WithContext(ctx).Table(d.table).Create(&row).Error)
}

// Close releases the connection pool.
func (d *DatabaseSource) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
