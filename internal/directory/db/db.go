// Package db is the GORM-backed storage of employee records.
package db

import (
	"context"
	"errors"
	"fmt"

	rows "github.com/gartstein/directory/internal/directory/db/models"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/idgen"
	"github.com/gartstein/directory/internal/directory/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
}

func NewRepository(cfg *Config) (*Repository, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return Open(sqlite.Open(cfg.SQLitePath), 1)
	case DriverPostgres, "":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		return Open(postgres.Open(dsn), 0)
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", e.ErrConfiguration, cfg.Driver)
	}
}

// Open connects through dialector and migrates the schema. maxOpenConns
// caps the pool when positive; sqlite needs a single connection so that
// writers never contend for the file lock.
func Open(dialector gorm.Dialector, maxOpenConns int) (*Repository, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if maxOpenConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access connection pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(maxOpenConns)
	}

	if err := db.AutoMigrate(&rows.Employee{}, &rows.IdempotencyKey{}, &rows.EmployeeSequence{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) CreateEmployee(ctx context.Context, emp *models.Employee) error {
	row := toRow(emp)
	result := r.db.WithContext(ctx).Create(row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", e.ErrDuplicateEmployeeID, emp.EmployeeID)
		}
		return result.Error
	}
	emp.CreatedAt = row.CreatedAt
	emp.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) GetEmployee(ctx context.Context, employeeID string) (*models.Employee, error) {
	var row rows.Employee
	result := r.db.WithContext(ctx).First(&row, "employee_id = ?", employeeID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return fromRow(&row), nil
}

// ListEmployees returns every record ordered by employee identifier.
func (r *Repository) ListEmployees(ctx context.Context) ([]*models.Employee, error) {
	var found []rows.Employee
	if err := r.db.WithContext(ctx).Order("employee_id ASC").Find(&found).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Employee, 0, len(found))
	for i := range found {
		out = append(out, fromRow(&found[i]))
	}
	return out, nil
}

// MaxEmployeeID returns the greatest stored employee identifier, or "" when
// the table is empty. Identifiers are fixed width, so the lexicographic
// maximum is also the numeric one.
func (r *Repository) MaxEmployeeID(ctx context.Context) (string, error) {
	var ids []string
	result := r.db.WithContext(ctx).Model(&rows.Employee{}).
		Where("employee_id LIKE ?", idgen.Prefix+"%").
		Order("employee_id DESC").
		Limit(1).
		Pluck("employee_id", &ids)
	if result.Error != nil {
		return "", result.Error
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}

const employeeSequence = "employee"

// NextEmployeeID advances the persisted employee sequence and returns the
// identifier to issue. It must run inside WithTransaction: the sequence row
// stays locked until the insert commits, and a rollback returns the
// identifier. The sequence never moves below a stored identifier, so rows
// that predate it are respected.
func (r *Repository) NextEmployeeID(ctx context.Context) (string, error) {
	db := r.db.WithContext(ctx)

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows.EmployeeSequence{Name: employeeSequence}).Error; err != nil {
		return "", fmt.Errorf("failed to initialize employee sequence: %w", err)
	}

	var seq rows.EmployeeSequence
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&seq, "name = ?", employeeSequence).Error; err != nil {
		return "", fmt.Errorf("failed to lock employee sequence: %w", err)
	}

	last := seq.LastID
	stored, err := r.MaxEmployeeID(ctx)
	if err != nil {
		return "", err
	}
	// Fixed width identifiers compare correctly as strings.
	if stored > last {
		last = stored
	}

	next, err := idgen.Next(last)
	if err != nil {
		return "", err
	}
	if err := db.Model(&rows.EmployeeSequence{}).
		Where("name = ?", employeeSequence).
		Update("last_id", next).Error; err != nil {
		return "", fmt.Errorf("failed to advance employee sequence: %w", err)
	}
	return next, nil
}

// UpdateEmployee loads the record under a row lock, lets mutate change it
// and saves the result in the same transaction. Identity, credentials and
// creation time are preserved whatever mutate does.
func (r *Repository) UpdateEmployee(
	ctx context.Context,
	employeeID string,
	mutate func(emp *models.Employee) error,
) (*models.Employee, error) {
	var updated *models.Employee
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row rows.Employee
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "employee_id = ?", employeeID)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return e.ErrNotFound
			}
			return result.Error
		}

		emp := fromRow(&row)
		if err := mutate(emp); err != nil {
			return err
		}

		next := toRow(emp)
		next.ID = row.ID
		next.EmployeeID = row.EmployeeID
		next.PasswordHash = row.PasswordHash
		next.CreatedAt = row.CreatedAt
		if err := tx.Save(next).Error; err != nil {
			return err
		}
		updated = fromRow(next)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Repository) DeleteEmployee(ctx context.Context, employeeID string) error {
	result := r.db.WithContext(ctx).Delete(&rows.Employee{}, "employee_id = ?", employeeID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// Exec runs a raw statement. Tests use it to reset tables.
func (r *Repository) Exec(ctx context.Context, query string, params ...any) error {
	return r.db.WithContext(ctx).Exec(query, params...).Error
}

func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
