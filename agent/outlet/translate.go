package outlet

import (
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
)

var ErrForeignFilter = errors.New("filter was not produced by a known template")

const (
	clauseLocation = "location = ?"
	clauseName     = "name = ?"
	clauseService  = "services LIKE ?"
)

type templateKey struct {
	location bool
	name     bool
	services int
}

// templates holds every WHERE clause the outlet store will ever run. Values
// only reach the database as bound arguments.
var templates = buildTemplates()

func buildTemplates() map[templateKey]string {
	out := make(map[templateKey]string, 4*(len(serviceAliases)+1))
	for _, loc := range []bool{false, true} {
		for _, name := range []bool{false, true} {
			for n := 0; n <= len(serviceAliases); n++ {
				var clauses []string
				if loc {
					clauses = append(clauses, clauseLocation)
				}
				if name {
					clauses = append(clauses, clauseName)
				}
				for i := 0; i < n; i++ {
					clauses = append(clauses, clauseService)
				}
				out[templateKey{location: loc, name: name, services: n}] = strings.Join(clauses, " AND ")
			}
		}
	}
	return out
}

// Filter is a fixed query template plus its bound values. The zero Filter is
// not valid; filters come from Translate or Build.
type Filter struct {
	key      templateKey
	args     []any
	criteria Criteria
	built    bool
}

// SQL is the WHERE template, empty when the filter lists every outlet.
func (f Filter) SQL() string {
	return templates[f.key]
}

func (f Filter) Args() []any {
	out := make([]any, len(f.args))
	copy(out, f.args)
	return out
}

func (f Filter) Criteria() Criteria {
	c := f.criteria
	c.Services = append([]string(nil), f.criteria.Services...)
	return c
}

func (f Filter) String() string {
	if where := f.SQL(); where != "" {
		return fmt.Sprintf("WHERE %s %v", where, f.args)
	}
	return "ALL"
}

// Validate rejects filters that did not come from a known template.
func (f Filter) Validate() error {
	if !f.built {
		return ErrForeignFilter
	}
	where, ok := templates[f.key]
	if !ok {
		return ErrForeignFilter
	}
	if strings.Count(where, "?") != len(f.args) {
		return fmt.Errorf("%w: %d placeholders, %d args", ErrForeignFilter, strings.Count(where, "?"), len(f.args))
	}
	return nil
}

// Translate maps a natural-language outlet question onto a Filter. Questions
// naming no known location, outlet, service or "all" fail with
// contract.ErrUnsupportedQueryShape.
func Translate(query string) (Filter, error) {
	return Build(ParseCriteria(query))
}

// Build turns structured criteria into a Filter.
func Build(c Criteria) (Filter, error) {
	services := make([]string, 0, len(c.Services))
	for _, s := range c.Services {
		canonical, ok := CanonicalService(s)
		if !ok {
			return Filter{}, fmt.Errorf("%w: unknown service %q", contractx.ErrUnsupportedQueryShape, s)
		}
		services = appendUnique(services, canonical)
	}
	c.Services = orderServices(services)
	c.Location = strings.TrimSpace(c.Location)
	c.OutletName = strings.TrimSpace(c.OutletName)

	if c.IsEmpty() {
		return Filter{}, fmt.Errorf("%w: name a location, an outlet or a service", contractx.ErrUnsupportedQueryShape)
	}

	key := templateKey{
		location: c.Location != "",
		name:     c.OutletName != "",
		services: len(c.Services),
	}
	var args []any
	if key.location {
		args = append(args, c.Location)
	}
	if key.name {
		args = append(args, c.OutletName)
	}
	for _, s := range c.Services {
		args = append(args, "%"+s+"%")
	}
	if key.location || key.name || key.services > 0 {
		c.All = false
	}

	return Filter{key: key, args: args, criteria: c, built: true}, nil
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func orderServices(services []string) []string {
	out := make([]string, 0, len(services))
	for _, a := range serviceAliases {
		for _, s := range services {
			if s == a.canonical {
				out = append(out, s)
			}
		}
	}
	return out
}
