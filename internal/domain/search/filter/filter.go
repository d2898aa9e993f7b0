package filter

import (
	"fmt"
	"time"

	"github.com/koralov/raggate/internal/domain/document"
)

// MaxValuesPerFacet is the maximum number of values per facet filter.
const MaxValuesPerFacet = 32

// DateRange bounds document dates. Either side may be zero (unbounded).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Contains reports whether ts falls within the range (inclusive bounds).
func (r DateRange) Contains(ts time.Time) bool {
	if !r.Start.IsZero() && ts.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && ts.After(r.End) {
		return false
	}
	return true
}

// Filters restricts a search. Filter kinds combine conjunctively;
// values within categories/departments are disjunctive, while tags
// require every listed tag to be present.
type Filters struct {
	dateRange   DateRange
	categories  []string
	departments []string
	tags        []string
}

// New validates and creates Filters.
func New(dateRange DateRange, categories, departments, tags []string) (Filters, error) {
	if !dateRange.Start.IsZero() && !dateRange.End.IsZero() && dateRange.End.Before(dateRange.Start) {
		return Filters{}, fmt.Errorf("date range end before start")
	}
	for _, group := range []struct {
		name   string
		values []string
	}{
		{"category", categories},
		{"department", departments},
		{"tags", tags},
	} {
		if len(group.values) > MaxValuesPerFacet {
			return Filters{}, fmt.Errorf("too many %s values (max %d)", group.name, MaxValuesPerFacet)
		}
		for _, v := range group.values {
			if v == "" {
				return Filters{}, fmt.Errorf("empty %s value", group.name)
			}
		}
	}
	return Filters{
		dateRange:   dateRange,
		categories:  categories,
		departments: departments,
		tags:        tags,
	}, nil
}

// DateRange returns the date bounds.
func (f Filters) DateRange() DateRange { return f.dateRange }

// Categories returns the category membership set.
func (f Filters) Categories() []string { return f.categories }

// Departments returns the department membership set.
func (f Filters) Departments() []string { return f.departments }

// Tags returns the required tag set.
func (f Filters) Tags() []string { return f.tags }

// IsEmpty reports whether no filter is set.
func (f Filters) IsEmpty() bool {
	return f.dateRange.IsZero() &&
		len(f.categories) == 0 && len(f.departments) == 0 && len(f.tags) == 0
}

// Matches evaluates the filters against a document. Used for
// client-side post-filtering on top of store-side filtering, so a
// store/filter sync bug cannot leak unfiltered documents.
func (f Filters) Matches(doc *document.Document) bool {
	if !f.dateRange.IsZero() && !f.dateRange.Contains(doc.Date()) {
		return false
	}
	if len(f.categories) > 0 && !contains(f.categories, doc.Category()) {
		return false
	}
	if len(f.departments) > 0 && !contains(f.departments, doc.Department()) {
		return false
	}
	for _, tag := range f.tags {
		if !doc.HasTag(tag) {
			return false
		}
	}
	return true
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
