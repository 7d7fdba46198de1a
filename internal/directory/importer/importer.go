// Package importer onboards employees in bulk from a CSV file. Rows are
// fanned out to a pool of workers, each row goes through the regular create
// path, and rejected rows are written to an error CSV with the reason.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/metrics"
	"github.com/gartstein/directory/internal/directory/models"
	"go.uber.org/zap"
)

// Creator is the create operation of the directory service.
type Creator interface {
	CreateEmployee(ctx context.Context, in *models.NewEmployee, idempotencyKey string) (*models.Employee, error)
}

// KeyColumn optionally carries a caller-chosen idempotency key. Without it
// the key is derived from the row content, so re-running a file does not
// create duplicates.
const KeyColumn = "idempotencyKey"

var columns = map[string]func(in *models.NewEmployee, v string){
	"firstName":      func(in *models.NewEmployee, v string) { in.PersonalInfo.FirstName = v },
	"lastName":       func(in *models.NewEmployee, v string) { in.PersonalInfo.LastName = v },
	"dateOfBirth":    func(in *models.NewEmployee, v string) { in.PersonalInfo.DateOfBirth = v },
	"email":          func(in *models.NewEmployee, v string) { in.PersonalInfo.Email = v },
	"contactNumber":  func(in *models.NewEmployee, v string) { in.PersonalInfo.ContactNumber = v },
	"address":        func(in *models.NewEmployee, v string) { in.PersonalInfo.Address = v },
	"designation":    func(in *models.NewEmployee, v string) { in.CompanyInfo.Designation = v },
	"department":     func(in *models.NewEmployee, v string) { in.CompanyInfo.Department = v },
	"departmentId":   func(in *models.NewEmployee, v string) { in.CompanyInfo.DepartmentID = v },
	"joiningDate":    func(in *models.NewEmployee, v string) { in.CompanyInfo.JoiningDate = v },
	"employmentType": func(in *models.NewEmployee, v string) { in.CompanyInfo.EmploymentType = models.EmploymentType(v) },
	"bankName":       func(in *models.NewEmployee, v string) { in.BankDetails.BankName = v },
	"accountNumber":  func(in *models.NewEmployee, v string) { in.BankDetails.AccountNumber = v },
	"ifscCode":       func(in *models.NewEmployee, v string) { in.BankDetails.IFSCCode = v },
	"panNumber":      func(in *models.NewEmployee, v string) { in.BankDetails.PANNumber = v },
}

// Job holds one CSV data row.
type Job struct {
	Row    []string
	RowNum int
}

// ErrRow holds a row that could not be imported.
type ErrRow struct {
	Job   Job
	Error error
}

// Summary reports the outcome of an import.
type Summary struct {
	Rows    int
	Created int
	Failed  int
}

type Importer struct {
	creator Creator
	workers int
	comma   rune
	logger  *zap.Logger
}

func New(creator Creator, workers int, comma rune, logger *zap.Logger) *Importer {
	if workers < 1 {
		workers = 1
	}
	if comma == 0 {
		comma = ','
	}
	return &Importer{creator: creator, workers: workers, comma: comma, logger: logger.Named("importer")}
}

// Run imports every row of src. Rejected rows are copied to errOut with an
// extra error column. The returned error is set only when the input itself
// cannot be read.
func (im *Importer) Run(ctx context.Context, src io.Reader, errOut io.Writer) (Summary, error) {
	r := csv.NewReader(src)
	r.Comma = im.comma
	r.TrimLeadingSpace = true

	headers, err := r.Read()
	if err != nil {
		return Summary{}, fmt.Errorf("%w: read csv header: %v", e.ErrInvalidInput, err)
	}
	keyCol, err := checkHeaders(headers)
	if err != nil {
		return Summary{}, err
	}
	// Data rows may differ in width from the header; parseRow reports it.
	r.FieldsPerRecord = -1

	csvWriter := csv.NewWriter(errOut)
	csvWriter.Comma = im.comma
	if err := csvWriter.Write(append(append([]string{}, headers...), "error")); err != nil {
		return Summary{}, fmt.Errorf("write error csv header: %w", err)
	}

	var (
		wgWorkers    sync.WaitGroup
		wgCollectors sync.WaitGroup
		mu           sync.Mutex
		summary      Summary
	)
	jobs := make(chan Job)
	failures := make(chan ErrRow)

	for i := 0; i < im.workers; i++ {
		wgWorkers.Add(1)
		go func() {
			defer wgWorkers.Done()
			for job := range jobs {
				err := im.importRow(ctx, headers, keyCol, job)
				mu.Lock()
				summary.Rows++
				if err != nil {
					summary.Failed++
				} else {
					summary.Created++
				}
				mu.Unlock()
				if err != nil {
					metrics.ImportRows.WithLabelValues("failed").Inc()
					failures <- ErrRow{Job: job, Error: err}
					continue
				}
				metrics.ImportRows.WithLabelValues("created").Inc()
			}
		}()
	}

	wgCollectors.Add(1)
	go func() {
		defer wgCollectors.Done()
		for f := range failures {
			if err := csvWriter.Write(append(append([]string{}, f.Job.Row...), describe(f.Error))); err != nil {
				im.logger.Error("failed to write error row", zap.Int("row", f.Job.RowNum), zap.Error(err))
			}
		}
		csvWriter.Flush()
	}()

	readErr := sendJobs(ctx, r, jobs)

	wgWorkers.Wait()
	close(failures)
	wgCollectors.Wait()

	if err := csvWriter.Error(); err != nil {
		im.logger.Error("failed to flush error csv", zap.Error(err))
	}
	im.logger.Info("Import finished",
		zap.Int("rows", summary.Rows),
		zap.Int("created", summary.Created),
		zap.Int("failed", summary.Failed),
	)
	if readErr != nil {
		return summary, fmt.Errorf("%w: read csv: %v", e.ErrInvalidInput, readErr)
	}
	return summary, nil
}

func sendJobs(ctx context.Context, r *csv.Reader, jobs chan<- Job) error {
	defer close(jobs)

	rowNum := 0
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		rowNum++
		select {
		case jobs <- Job{Row: row, RowNum: rowNum}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (im *Importer) importRow(ctx context.Context, headers []string, keyCol int, job Job) error {
	in, err := parseRow(headers, job.Row)
	if err != nil {
		return err
	}

	key := rowKey(job.Row)
	if keyCol >= 0 && job.Row[keyCol] != "" {
		key = job.Row[keyCol]
	}

	emp, err := im.creator.CreateEmployee(ctx, in, key)
	if err != nil {
		return err
	}
	im.logger.Debug("row imported", zap.Int("row", job.RowNum), zap.String("employee_id", emp.EmployeeID))
	return nil
}

func checkHeaders(headers []string) (int, error) {
	keyCol := -1
	seen := make(map[string]bool, len(headers))
	verr := &e.ValidationError{}
	for i, h := range headers {
		h = strings.TrimSpace(h)
		headers[i] = h
		switch {
		case seen[h]:
			verr.Add("header."+h, "duplicate column")
		case h == KeyColumn:
			keyCol = i
		case columns[h] == nil:
			verr.Add("header."+h, "unknown column")
		}
		seen[h] = true
	}
	return keyCol, verr.OrNil()
}

func parseRow(headers, row []string) (*models.NewEmployee, error) {
	if len(row) != len(headers) {
		return nil, fmt.Errorf("%w: row has %d fields, header has %d", e.ErrInvalidInput, len(row), len(headers))
	}
	in := &models.NewEmployee{}
	for i, h := range headers {
		if set := columns[h]; set != nil {
			set(in, strings.TrimSpace(row[i]))
		}
	}
	return in, nil
}

// rowKey derives a stable idempotency key from the row content.
func rowKey(row []string) string {
	sum := sha256.Sum256([]byte(strings.Join(row, "\x1f")))
	return "import:" + hex.EncodeToString(sum[:])
}

func describe(err error) string {
	var verr *e.ValidationError
	if errors.As(err, &verr) {
		parts := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			parts = append(parts, f.Field+" "+f.Reason)
		}
		return strings.Join(parts, "; ")
	}
	return err.Error()
}
