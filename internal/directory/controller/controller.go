// Package controller implements the directory service: the business logic
// behind every employee operation. It validates input against the record
// model and the designation catalog, mints sequential identifiers and
// publishes an event for each mutation.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/directory/internal/directory/auth"
	"github.com/gartstein/directory/internal/directory/catalog"
	"github.com/gartstein/directory/internal/directory/db"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/idgen"
	"github.com/gartstein/directory/internal/directory/metrics"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/directory/permissions"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type EventProducer interface {
	Produce(eventType events.EventType, emp *models.Employee)
}

// Repository defines the storage interface for employee records.
type Repository interface {
	CreateEmployee(ctx context.Context, emp *models.Employee) error
	GetEmployee(ctx context.Context, employeeID string) (*models.Employee, error)
	ListEmployees(ctx context.Context) ([]*models.Employee, error)
	NextEmployeeID(ctx context.Context) (string, error)
	UpdateEmployee(ctx context.Context, employeeID string, mutate func(emp *models.Employee) error) (*models.Employee, error)
	DeleteEmployee(ctx context.Context, employeeID string) error
	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
}

// IdempotencyStore remembers which employee a create request produced.
// Reserve returns the binding of a completed key, a zero binding when the
// caller owns the key, or ErrConflict while another create holds it.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (models.KeyBinding, error)
	Complete(ctx context.Context, key string, b models.KeyBinding) error
	Release(ctx context.Context, key string) error
}

const (
	DefaultMintRetries  = 5
	DefaultMintInterval = 10 * time.Millisecond

	completeAttempts = 3
)

// Config carries the process configuration the service depends on.
type Config struct {
	Catalog *catalog.Catalog
	// DefaultPassword is assigned to every new account. Creation fails with
	// ErrConfiguration while it is empty.
	DefaultPassword string
	BcryptCost      int
	// MintRetries bounds the retries after an identifier collision.
	MintRetries  uint64
	MintInterval time.Duration
}

// DirectoryService provides the employee directory operations.
type DirectoryService struct {
	repo        Repository
	producer    EventProducer
	idempotency IdempotencyStore
	cfg         Config
	logger      *zap.Logger

	// mintMu serializes read-max, derive, insert within the process. The
	// unique index on employee_id guards across processes.
	mintMu sync.Mutex
}

// NewDirectoryService constructs a DirectoryService. idempotency may be nil,
// in which case idempotency keys are ignored.
func NewDirectoryService(
	repo Repository,
	producer EventProducer,
	idempotency IdempotencyStore,
	cfg Config,
	logger *zap.Logger,
) (*DirectoryService, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("%w: designation catalog is required", e.ErrConfiguration)
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d out of range", e.ErrConfiguration, cfg.BcryptCost)
	}
	if cfg.MintRetries == 0 {
		cfg.MintRetries = DefaultMintRetries
	}
	if cfg.MintInterval <= 0 {
		cfg.MintInterval = DefaultMintInterval
	}
	if producer == nil {
		producer = events.NopProducer{}
	}
	return &DirectoryService{
		repo:        repo,
		producer:    producer,
		idempotency: idempotency,
		cfg:         cfg,
		logger:      logger.Named("directory_service"),
	}, nil
}

// ListDesignations returns every designation in catalog order.
func (s *DirectoryService) ListDesignations(_ context.Context) []string {
	return s.cfg.Catalog.Designations()
}

// ResolveDepartments returns the departments allowed for designation. An
// unknown designation yields empty lists.
func (s *DirectoryService) ResolveDepartments(_ context.Context, designation string) catalog.Departments {
	return s.cfg.Catalog.Resolve(designation)
}

func (s *DirectoryService) ListEmploymentTypes(_ context.Context) []models.EmploymentType {
	return models.EmploymentTypes()
}

// CreateEmployee validates in, assigns the next employee identifier and the
// default credentials, and stores the record. The returned record carries
// the plaintext default password; it is the only place it is ever exposed.
//
// A non-empty idempotencyKey makes the call safe to retry: a key that
// already produced an employee returns that employee without a password.
func (s *DirectoryService) CreateEmployee(
	ctx context.Context,
	in *models.NewEmployee,
	idempotencyKey string,
) (emp *models.Employee, err error) {
	defer func() { observe("create", err) }()

	if in == nil {
		return nil, e.NewValidationError("body", "is required")
	}
	if err := s.validateNew(in); err != nil {
		return nil, err
	}
	if s.cfg.DefaultPassword == "" {
		return nil, fmt.Errorf("%w: default password is not configured", e.ErrConfiguration)
	}

	useKey := idempotencyKey != "" && s.idempotency != nil
	if useKey {
		existing, err := s.idempotency.Reserve(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if !existing.IsZero() {
			return s.replay(ctx, idempotencyKey, existing)
		}
	}

	emp, err = s.create(ctx, in)
	if err != nil {
		if useKey {
			if rerr := s.idempotency.Release(context.WithoutCancel(ctx), idempotencyKey); rerr != nil {
				s.logger.Error("Failed to release idempotency key",
					zap.Error(rerr),
					zap.String("idempotency_key", idempotencyKey),
				)
			}
		}
		return nil, err
	}

	if useKey {
		s.complete(context.WithoutCancel(ctx), idempotencyKey, emp)
	}

	s.producer.Produce(events.EmployeeCreated, emp.Redacted())
	s.logger.Info("Employee created",
		zap.String("employee_id", emp.EmployeeID),
		zap.String("designation", emp.CompanyInfo.Designation),
		actor(ctx),
	)

	emp.Password = s.cfg.DefaultPassword
	return emp, nil
}

// replay returns the employee a completed key created. The record must be
// the very one bound to the key; if it was deleted the key no longer
// resolves.
func (s *DirectoryService) replay(ctx context.Context, key string, b models.KeyBinding) (*models.Employee, error) {
	emp, err := s.repo.GetEmployee(ctx, b.EmployeeID)
	if err != nil && !errors.Is(err, e.ErrNotFound) {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	if err != nil || !b.Matches(emp) {
		return nil, fmt.Errorf("%w: employee %s created with idempotency key %q no longer exists",
			e.ErrNotFound, b.EmployeeID, key)
	}

	metrics.IdempotentReplays.Inc()
	s.logger.Info("Replaying idempotent create",
		zap.String("employee_id", emp.EmployeeID),
		zap.String("idempotency_key", key),
	)
	return emp, nil
}

// complete binds key to emp. When the store keeps failing the reservation
// is released instead, so retries with the key are not refused until it
// expires.
func (s *DirectoryService) complete(ctx context.Context, key string, emp *models.Employee) {
	b := models.KeyBinding{EmployeeID: emp.EmployeeID, ID: emp.ID}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.MintInterval
	err := backoff.Retry(func() error {
		return s.idempotency.Complete(ctx, key, b)
	}, backoff.WithMaxRetries(policy, completeAttempts-1))
	if err == nil {
		return
	}

	s.logger.Error("Failed to complete idempotency key, releasing it",
		zap.Error(err),
		zap.String("employee_id", emp.EmployeeID),
		zap.String("idempotency_key", key),
	)
	if rerr := s.idempotency.Release(ctx, key); rerr != nil {
		s.logger.Error("Failed to release idempotency key",
			zap.Error(rerr),
			zap.String("idempotency_key", key),
		)
	}
}

func (s *DirectoryService) validateNew(in *models.NewEmployee) error {
	verr := &e.ValidationError{}
	if err := in.Validate(); err != nil {
		var shape *e.ValidationError
		if !errors.As(err, &shape) {
			return err
		}
		verr.Fields = append(verr.Fields, shape.Fields...)
	}
	if in.CompanyInfo.Designation != "" {
		c := in.CompanyInfo
		verr.Fields = append(verr.Fields,
			s.cfg.Catalog.Check("companyInfo.", c.Designation, c.Department, c.DepartmentID).Fields...)
	}
	return verr.OrNil()
}

// create hashes the default password and inserts the record under a freshly
// minted identifier. Nothing is stored unless every step succeeds.
func (s *DirectoryService) create(ctx context.Context, in *models.NewEmployee) (*models.Employee, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.DefaultPassword), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash default password: %w", err)
	}

	emp := &models.Employee{
		ID:            uuid.New(),
		PasswordHash:  string(hash),
		AccountStatus: models.StatusActive,
		PersonalInfo:  in.PersonalInfo,
		CompanyInfo:   in.CompanyInfo,
		BankDetails:   in.BankDetails,
		Permissions:   permissions.Default(),
	}
	if err := s.mint(ctx, emp); err != nil {
		return nil, err
	}
	return emp, nil
}

// mint assigns the next identifier to emp and inserts it. A collision with
// a concurrent writer in another process is retried with backoff; when the
// retries run out the caller gets ErrConflict.
func (s *DirectoryService) mint(ctx context.Context, emp *models.Employee) error {
	s.mintMu.Lock()
	defer s.mintMu.Unlock()

	attempt := func() error {
		err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
			next, err := tx.NextEmployeeID(ctx)
			if err != nil {
				return err
			}
			emp.EmployeeID = next
			return tx.CreateEmployee(ctx, emp)
		})
		if errors.Is(err, e.ErrDuplicateEmployeeID) {
			metrics.MintRetries.Inc()
			s.logger.Warn("Employee id collision, retrying",
				zap.String("employee_id", emp.EmployeeID),
			)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.MintInterval
	b := backoff.WithContext(backoff.WithMaxRetries(policy, s.cfg.MintRetries), ctx)

	if err := backoff.Retry(attempt, b); err != nil {
		emp.EmployeeID = ""
		if errors.Is(err, e.ErrDuplicateEmployeeID) {
			return fmt.Errorf("%w: could not allocate a unique employee id, retry the request", e.ErrConflict)
		}
		if errors.Is(err, e.ErrConfiguration) {
			return err
		}
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

// ListEmployees returns every employee ordered by identifier.
func (s *DirectoryService) ListEmployees(ctx context.Context) ([]*models.Employee, error) {
	list, err := s.repo.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return list, nil
}

// GetEmployee retrieves an employee by identifier.
func (s *DirectoryService) GetEmployee(ctx context.Context, employeeID string) (*models.Employee, error) {
	if err := checkID(employeeID); err != nil {
		return nil, err
	}
	emp, err := s.repo.GetEmployee(ctx, employeeID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return emp, nil
}

// UpdateEmployee merges a sparse update into the stored record. The merged
// record is validated as a whole, and placement changes are checked against
// the catalog, before anything is written.
func (s *DirectoryService) UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) (emp *models.Employee, err error) {
	defer func() { observe("update", err) }()

	if update == nil || update.EmployeeID == "" {
		return nil, fmt.Errorf("%w: invalid employee ID", e.ErrInvalidInput)
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}
	if err := checkID(update.EmployeeID); err != nil {
		return nil, err
	}
	if update.Empty() {
		return s.GetEmployee(ctx, update.EmployeeID)
	}

	updated, err := s.repo.UpdateEmployee(ctx, update.EmployeeID, func(emp *models.Employee) error {
		update.ApplyTo(emp)
		return s.validateMerged(emp, update.TouchesCompany())
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) || errors.Is(err, e.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update employee: %w", err)
	}

	s.producer.Produce(events.EmployeeUpdated, updated.Redacted())
	s.logger.Info("Employee updated", zap.String("employee_id", updated.EmployeeID), actor(ctx))
	return updated, nil
}

func (s *DirectoryService) validateMerged(emp *models.Employee, checkCatalog bool) error {
	verr := &e.ValidationError{}
	if err := emp.Validate(); err != nil {
		var shape *e.ValidationError
		if !errors.As(err, &shape) {
			return err
		}
		verr.Fields = append(verr.Fields, shape.Fields...)
	}
	if checkCatalog && emp.CompanyInfo.Designation != "" {
		c := emp.CompanyInfo
		verr.Fields = append(verr.Fields,
			s.cfg.Catalog.Check("companyInfo.", c.Designation, c.Department, c.DepartmentID).Fields...)
	}
	return verr.OrNil()
}

// UpdatePermissions merges patch into the employee's permission map and
// returns the full updated map.
func (s *DirectoryService) UpdatePermissions(
	ctx context.Context,
	employeeID string,
	patch map[string]string,
) (perms permissions.Map, err error) {
	defer func() { observe("update_permissions", err) }()

	if err := checkID(employeeID); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateEmployee(ctx, employeeID, func(emp *models.Employee) error {
		next, err := permissions.Apply(emp.Permissions, patch)
		if err != nil {
			return err
		}
		emp.Permissions = next
		return nil
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) || errors.Is(err, e.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update permissions: %w", err)
	}

	s.producer.Produce(events.EmployeePermissionsUpdated, updated.Redacted())
	s.logger.Info("Employee permissions updated", zap.String("employee_id", updated.EmployeeID), actor(ctx))
	return updated.Permissions, nil
}

func (s *DirectoryService) GetPermissions(ctx context.Context, employeeID string) (permissions.Map, error) {
	emp, err := s.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return emp.Permissions, nil
}

// DeleteEmployee permanently removes an employee and fires a deletion event.
func (s *DirectoryService) DeleteEmployee(ctx context.Context, employeeID string) (err error) {
	defer func() { observe("delete", err) }()

	if err := checkID(employeeID); err != nil {
		return err
	}

	emp, err := s.repo.GetEmployee(ctx, employeeID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to get employee for deletion: %w", err)
	}

	if err := s.repo.DeleteEmployee(ctx, employeeID); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete employee: %w", err)
	}

	s.producer.Produce(events.EmployeeDeleted, emp.Redacted())
	s.logger.Info("Employee deleted", zap.String("employee_id", employeeID), actor(ctx))
	return nil
}

func observe(operation string, err error) {
	metrics.EmployeeOperations.WithLabelValues(operation, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, e.ErrNotFound):
		return "not_found"
	case errors.Is(err, e.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, e.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

// checkID reports identifiers idgen could never have issued as not found,
// without a storage round trip.
func checkID(employeeID string) error {
	if !idgen.Valid(employeeID) {
		return fmt.Errorf("%w: employee %q", e.ErrNotFound, employeeID)
	}
	return nil
}

// actor names the token subject behind a mutation, when the write guard is on.
func actor(ctx context.Context) zap.Field {
	if sub := auth.Subject(ctx); sub != "" {
		return zap.String("actor", sub)
	}
	return zap.Skip()
}
