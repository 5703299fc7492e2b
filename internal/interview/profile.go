// Package interview holds the content side of an interview: the profile a
// session is created with, the technical category and role tables, and the
// prompt texts spoken to the candidate or sent to the language model.
//
// Everything here is pure data and formatting. Nothing in this package
// performs I/O, and all functions are safe for concurrent use.
package interview

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidCategory is matched by the error [ValidateCategories] returns when
// one or more technical categories are unknown.
var ErrInvalidCategory = errors.New("interview: invalid technical category")

// ErrUnknownRole is returned by [NormaliseRole] when a role is not in the role
// table. The role is still usable: it falls back to "general".
var ErrUnknownRole = errors.New("interview: unknown role")

// Type is the interview flavour.
type Type string

const (
	// TypeTechnical asks questions from the technical category table.
	TypeTechnical Type = "technical"

	// TypeRoleBased asks questions tailored to a job role.
	TypeRoleBased Type = "role_based"

	// TypeGeneral is a role-based interview for the "general" role.
	TypeGeneral Type = "general"
)

// DefaultCompany is used when a profile does not name the hiring company.
const DefaultCompany = "our company"

// Profile describes one interview. The pipeline treats it as opaque; only
// this package reads its fields to build prompts.
//
// JSON field names follow the persisted session record.
type Profile struct {
	ID              string   `json:"interview_id,omitempty"`
	Type            Type     `json:"interview_type"`
	Categories      []string `json:"technical_categories,omitempty"`
	Role            string   `json:"role_type,omitempty"`
	RoleTitle       string   `json:"role_title,omitempty"`
	Company         string   `json:"company,omitempty"`
	Skills          []string `json:"specific_skills,omitempty"`
	FocusAreas      []string `json:"interview_focus,omitempty"`
	DurationMinutes int      `json:"session_minutes,omitempty"`
}

// CategoryError lists the technical categories that failed validation. It
// matches [ErrInvalidCategory] with errors.Is.
type CategoryError struct {
	Invalid []string
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("interview: invalid technical categories: %s", strings.Join(e.Invalid, ", "))
}

// Is reports whether target is [ErrInvalidCategory].
func (e *CategoryError) Is(target error) bool { return target == ErrInvalidCategory }

// ValidateCategories lower-cases, trims and de-duplicates cats, preserving
// order. It returns a [*CategoryError] naming every unknown category.
func ValidateCategories(cats []string) ([]string, error) {
	out := make([]string, 0, len(cats))
	seen := make(map[string]bool, len(cats))
	var bad []string
	for _, c := range cats {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		if _, ok := categoryIndex[c]; !ok {
			bad = append(bad, c)
			continue
		}
		out = append(out, c)
	}
	if len(bad) > 0 {
		return nil, &CategoryError{Invalid: bad}
	}
	return out, nil
}

// NormaliseRole maps role to its table key. An empty role is "general"
// without error. An unknown role is also mapped to "general", and the
// returned error wraps [ErrUnknownRole] so callers may reject it.
func NormaliseRole(role string) (string, error) {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return RoleGeneral, nil
	}
	if _, ok := roleIndex[r]; ok {
		return r, nil
	}
	return RoleGeneral, fmt.Errorf("%w: %q", ErrUnknownRole, role)
}

// Normalise validates p and fills in defaults: the role title from the role
// table, the default company, and "general" for an empty role. Technical
// categories are lower-cased. Errors wrap [ErrInvalidCategory] or
// [ErrUnknownRole].
func (p Profile) Normalise() (Profile, error) {
	if p.Type == "" {
		p.Type = TypeTechnical
	}
	var errs []error
	switch p.Type {
	case TypeTechnical:
		cats, err := ValidateCategories(p.Categories)
		if err != nil {
			errs = append(errs, err)
		}
		p.Categories = cats
	case TypeRoleBased, TypeGeneral:
		if p.Type == TypeGeneral && p.Role == "" {
			p.Role = RoleGeneral
		}
		role, err := NormaliseRole(p.Role)
		if err != nil {
			errs = append(errs, err)
		}
		p.Role = role
		if strings.TrimSpace(p.RoleTitle) == "" {
			p.RoleTitle = roleIndex[role].DefaultTitle
		}
	default:
		errs = append(errs, fmt.Errorf("interview: unknown interview type %q", p.Type))
	}
	if strings.TrimSpace(p.Company) == "" {
		p.Company = DefaultCompany
	}
	if p.DurationMinutes < 0 {
		errs = append(errs, fmt.Errorf("interview: duration_minutes %d must not be negative", p.DurationMinutes))
	}
	return p, errors.Join(errs...)
}

// IsTechnical reports whether p is a technical interview.
func (p Profile) IsTechnical() bool { return p.Type == TypeTechnical || p.Type == "" }

// Duration returns the session length, or def when the profile leaves it
// unset.
func (p Profile) Duration(def time.Duration) time.Duration {
	if p.DurationMinutes > 0 {
		return time.Duration(p.DurationMinutes) * time.Minute
	}
	return def
}

// SummaryTitle is the role title reported in the final summary.
func (p Profile) SummaryTitle() string {
	if p.RoleTitle != "" {
		return p.RoleTitle
	}
	return "Technical Interview"
}
