// Package permissions models the fixed set of feature capabilities an
// employee can be granted and the access level held for each.
package permissions

import (
	"fmt"

	e "github.com/gartstein/directory/internal/directory/errors"
)

// Capability names a feature area.
type Capability string

const (
	Admin           Capability = "admin"
	Leads           Capability = "leads"
	Opportunities   Capability = "opportunities"
	Accounts        Capability = "accounts"
	Notes           Capability = "notes"
	Operations      Capability = "operations"
	Payments        Capability = "payments"
	Users           Capability = "users"
	Enquiry         Capability = "enquiry"
	ExportData      Capability = "exportData"
	Workorder       Capability = "workorder"
	GoogleSheet     Capability = "googleSheet"
	Dashboard       Capability = "dashboard"
	UserPrivileges  Capability = "userPrivileges"
	Sent            Capability = "sent"
	Drafts          Capability = "drafts"
	Calendar        Capability = "calendar"
	Tasks           Capability = "tasks"
	SalesReports    Capability = "salesReports"
	Analytics       Capability = "analytics"
	GeneralSettings Capability = "generalSettings"
	Security        Capability = "security"
	Notifications   Capability = "notifications"
)

// Level is the access granted for a capability.
type Level string

const (
	None Level = "none"
	View Level = "view"
	Edit Level = "edit"
	Full Level = "full"
)

var capabilities = []Capability{
	Admin, Leads, Opportunities, Accounts, Notes, Operations, Payments, Users,
	Enquiry, ExportData, Workorder, GoogleSheet, Dashboard, UserPrivileges,
	Sent, Drafts, Calendar, Tasks, SalesReports, Analytics, GeneralSettings,
	Security, Notifications,
}

var known = func() map[Capability]struct{} {
	m := make(map[Capability]struct{}, len(capabilities))
	for _, c := range capabilities {
		m[c] = struct{}{}
	}
	return m
}()

// Capabilities returns every capability in canonical order.
func Capabilities() []Capability {
	out := make([]Capability, len(capabilities))
	copy(out, capabilities)
	return out
}

// Levels returns the accepted access levels, weakest first.
func Levels() []Level {
	return []Level{None, View, Edit, Full}
}

// IsCapability reports whether name is one of the fixed capabilities.
func IsCapability(name string) bool {
	_, ok := known[Capability(name)]
	return ok
}

// IsLevel reports whether l is an accepted access level.
func IsLevel(l Level) bool {
	switch l {
	case None, View, Edit, Full:
		return true
	}
	return false
}

// Map holds one access level per capability.
type Map map[Capability]Level

// Default returns a map with every capability set to None.
func Default() Map {
	m := make(Map, len(capabilities))
	for _, c := range capabilities {
		m[c] = None
	}
	return m
}

// Clone returns an independent copy of m.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Normalize returns a copy of m restricted to known capabilities, with any
// missing capability filled with None.
func (m Map) Normalize() Map {
	out := Default()
	for c, l := range m {
		if _, ok := known[c]; ok && l != "" {
			out[c] = l
		}
	}
	return out
}

// Apply merges patch into current and returns the result. Capabilities not
// named in patch keep their value. Unknown capabilities and unknown levels
// reject the whole patch; current is never modified.
func Apply(current Map, patch map[string]string) (Map, error) {
	verr := &e.ValidationError{}
	for name, level := range patch {
		if !IsCapability(name) {
			verr.Add("permissions."+name, "unknown capability")
			continue
		}
		if !IsLevel(Level(level)) {
			verr.Add("permissions."+name, fmt.Sprintf("access level must be one of %v", Levels()))
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	out := current.Normalize()
	for name, level := range patch {
		out[Capability(name)] = Level(level)
	}
	return out, nil
}
