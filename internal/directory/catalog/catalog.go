// Package catalog holds the static designation catalog: which departments
// and department IDs each designation may be assigned to.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	e "github.com/gartstein/directory/internal/directory/errors"
	"gopkg.in/yaml.v3"
)

//go:embed designations.yaml
var embedded []byte

// Departments is the allowed assignment set for one designation.
type Departments struct {
	Departments   []string `json:"departments" yaml:"departments"`
	DepartmentIDs []string `json:"departmentIds" yaml:"departmentIds"`
}

type entry struct {
	Name        string `yaml:"name"`
	Departments `yaml:",inline"`
}

type file struct {
	Designations []entry `yaml:"designations"`
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	order   []string
	entries map[string]Departments
}

// Default returns the catalog shipped with the binary.
func Default() (*Catalog, error) {
	return Parse(bytes.NewReader(embedded))
}

// LoadFile reads a catalog from a YAML file, falling back to the embedded
// catalog when path is empty.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open catalog: %v", e.ErrConfiguration, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a catalog document.
func Parse(r io.Reader) (*Catalog, error) {
	var doc file
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %v", e.ErrConfiguration, err)
	}
	if len(doc.Designations) == 0 {
		return nil, fmt.Errorf("%w: catalog has no designations", e.ErrConfiguration)
	}

	c := &Catalog{entries: make(map[string]Departments, len(doc.Designations))}
	for _, d := range doc.Designations {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: catalog entry without a name", e.ErrConfiguration)
		}
		if _, dup := c.entries[name]; dup {
			return nil, fmt.Errorf("%w: duplicate designation %q", e.ErrConfiguration, name)
		}
		if len(d.Departments.Departments) == 0 || len(d.DepartmentIDs) == 0 {
			return nil, fmt.Errorf("%w: designation %q needs departments and department ids", e.ErrConfiguration, name)
		}
		c.order = append(c.order, name)
		c.entries[name] = d.Departments.clone()
	}
	return c, nil
}

// Designations returns designation names in catalog order.
func (c *Catalog) Designations() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Resolve returns the allowed departments for designation. An unknown
// designation yields empty lists rather than an error.
func (c *Catalog) Resolve(designation string) Departments {
	d, ok := c.entries[designation]
	if !ok {
		return Departments{Departments: []string{}, DepartmentIDs: []string{}}
	}
	return d.clone()
}

// Check validates a designation assignment and reports each offending field
// under the given prefix.
func (c *Catalog) Check(prefix, designation, department, departmentID string) *e.ValidationError {
	verr := &e.ValidationError{}
	d, ok := c.entries[designation]
	if !ok {
		verr.Add(prefix+"designation", fmt.Sprintf("unknown designation %q", designation))
		return verr
	}
	if !contains(d.Departments, department) {
		verr.Add(prefix+"department", fmt.Sprintf("must be one of %v for %s", d.Departments, designation))
	}
	if !contains(d.DepartmentIDs, departmentID) {
		verr.Add(prefix+"departmentId", fmt.Sprintf("must be one of %v for %s", d.DepartmentIDs, designation))
	}
	return verr
}

func (d Departments) clone() Departments {
	return Departments{
		Departments:   append([]string{}, d.Departments...),
		DepartmentIDs: append([]string{}, d.DepartmentIDs...),
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
