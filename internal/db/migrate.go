package db

import (
	"fmt"
	"os"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"invoice-backend/internal/logger"
	"invoice-backend/internal/models"
	"invoice-backend/internal/services"
)

// Connect opens the database selected by the DSN: postgres for URL or
// key=value DSNs, sqlite otherwise. Postgres connections are retried a few
// times so the app survives a database that is still starting up.
func Connect(rawDSN string) (*gorm.DB, error) {
	log := logger.WithComponent("db")
	dsn := NormalizeDSN(rawDSN)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty, check environment configuration")
	}

	logLevel := gormlogger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = gormlogger.Info
	}
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(logLevel)}

	var conn *gorm.DB
	var err error
	if IsPostgres(dsn) {
		for i := 0; i < 10; i++ {
			conn, err = gorm.Open(postgres.Open(dsn), cfg)
			if err == nil {
				break
			}
			log.Warn().Err(err).Msg("retrying database connection")
			time.Sleep(2 * time.Second)
		}
	} else {
		conn, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	return conn, nil
}

// ConnectAndMigrate connects and brings the schema up to date. With
// MIGRATIONS=1 (postgres only) versioned SQL migrations run via
// golang-migrate; otherwise AutoMigrate covers the models directly, which is
// the default and the only path for sqlite.
func ConnectAndMigrate(rawDSN string) (*gorm.DB, error) {
	conn, err := Connect(rawDSN)
	if err != nil {
		return nil, err
	}
	dsn := NormalizeDSN(rawDSN)
	if useSQLMigrations() && IsPostgres(dsn) {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range []any{&models.User{}, &models.Invoice{}, &models.InvoiceItem{}} {
			if migErr := conn.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}
	for _, table := range []string{"users", "invoices", "invoice_items"} {
		if !conn.Migrator().HasTable(table) {
			return nil, fmt.Errorf("missing table after migration: %s", table)
		}
	}
	if envFlag("DB_SEED") {
		if err := seed(conn); err != nil {
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}
	return conn, nil
}

func useSQLMigrations() bool { return envFlag("MIGRATIONS") }

func envFlag(name string) bool {
	v := strings.ToLower(os.Getenv(name))
	return v == "1" || v == "true" || v == "yes"
}

// seed inserts a demo user with one sample invoice. It is idempotent: a
// database that already has users is left alone.
func seed(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := models.User{Email: "demo@example.com", Password: string(hash), Name: "Demo"}
	if err := conn.Create(&user).Error; err != nil {
		return err
	}

	inv := services.NewInvoiceService().BuildInvoice(models.InvoiceFormData{
		InvoiceNumber: "INV-DEMO-001",
		Date:          "2024-06-01",
		DueDate:       "2024-07-01",
		Status:        models.StatusSent,
		Business:      models.Business{Name: "Studio Satu", Email: "halo@studiosatu.id", Address: "Jl. Merdeka 1\nJakarta"},
		Customer:      models.Customer{Name: "PT Pelanggan", Address: "Jl. Sudirman 2\nBandung"},
		Items: []models.InvoiceItem{
			{Description: "Desain logo", Quantity: 2, UnitPrice: 100000, TaxRate: 10},
			{Description: "Hosting", Quantity: 1, UnitPrice: 50000},
		},
		Language:              models.LanguageID,
		Currency:              models.CurrencyIDR,
		DownPaymentPercentage: 50,
	}, "", time.Time{})
	inv.OwnerID = user.ID
	return conn.Create(&inv).Error
}

// runSQLMigrations executes migrations in ./migrations using the file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
