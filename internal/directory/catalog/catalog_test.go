package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Senior Developer", "Tech Lead", "Admin", "Superadmin", "Project Manager", "Intern",
	}, c.Designations())

	pm := c.Resolve("Project Manager")
	assert.Equal(t, []string{"Developer", "Designer", "SEO", "Digital Marketing"}, pm.Departments)
	assert.Equal(t, []string{"DEV001", "DES001", "SEO001", "DM001"}, pm.DepartmentIDs)
}

func TestResolveIsStable(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	for _, d := range c.Designations() {
		first := c.Resolve(d)
		assert.NotEmpty(t, first.Departments, d)
		assert.NotEmpty(t, first.DepartmentIDs, d)

		// Mutating a result must not leak into the catalog.
		first.Departments[0] = "tampered"
		assert.NotEqual(t, "tampered", c.Resolve(d).Departments[0])
		assert.Equal(t, c.Resolve(d), c.Resolve(d))
	}
}

func TestResolveUnknown(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	got := c.Resolve("NoSuchRole")
	assert.NotNil(t, got.Departments)
	assert.NotNil(t, got.DepartmentIDs)
	assert.Empty(t, got.Departments)
	assert.Empty(t, got.DepartmentIDs)
	assert.NotContains(t, c.Designations(), "NoSuchRole")
}

func TestCheckIsPositionallyIndependent(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.False(t, c.Check("", "Project Manager", "Developer", "DM001").HasIssues())
	assert.False(t, c.Check("", "Intern", "Intern", "INT002").HasIssues())
	assert.True(t, c.Check("", "Intern", "Developer", "INT001").HasIssues())
	assert.True(t, c.Check("", "Admin", "HR", "DEV001").HasIssues())
	assert.True(t, c.Check("", "NoSuchRole", "HR", "HR001").HasIssues())
}

func TestCheck(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.False(t, c.Check("companyInfo.", "Admin", "HR", "HR001").HasIssues())

	verr := c.Check("companyInfo.", "Admin", "Developer", "DEV001")
	require.True(t, verr.HasIssues())
	assert.Len(t, verr.Fields, 2)
	assert.ErrorIs(t, verr.OrNil(), e.ErrInvalidInput)

	verr = c.Check("companyInfo.", "Janitor", "HR", "HR001")
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "companyInfo.designation", verr.Fields[0].Field)
}

func TestParseRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: "designations: []"},
		{name: "duplicate", doc: `
designations:
  - {name: Admin, departments: [HR], departmentIds: [HR001]}
  - {name: Admin, departments: [HR], departmentIds: [HR002]}`},
		{name: "no departments", doc: `
designations:
  - {name: Admin, departments: [], departmentIds: [HR001]}`},
		{name: "no name", doc: `
designations:
  - {departments: [HR], departmentIds: [HR001]}`},
		{name: "not yaml", doc: "designations: [: :"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, e.ErrConfiguration)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
designations:
  - name: Accountant
    departments: [Finance]
    departmentIds: [FIN001]
`), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Accountant"}, c.Designations())

	c, err = LoadFile("")
	require.NoError(t, err)
	assert.Contains(t, c.Designations(), "Tech Lead")

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, e.ErrConfiguration)
}
