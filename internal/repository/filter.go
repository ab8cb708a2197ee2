package repository

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

var (
	ErrUnknownField = errors.New("unknown filter field")
	ErrInvalidPage  = errors.New("invalid page")
)

type Op string

const (
	OpEq       Op = "eq"
	OpContains Op = "contains"
	OpAtLeast  Op = "at_least"
	OpAtMost   Op = "at_most"
)

// Condition is one named, typed test on an entity field.
type Condition struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, value any) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

// Contains matches a case-insensitive substring.
func Contains(field, value string) Condition {
	return Condition{Field: field, Op: OpContains, Value: value}
}

func AtLeast(field string, value any) Condition {
	return Condition{Field: field, Op: OpAtLeast, Value: value}
}

func AtMost(field string, value any) Condition {
	return Condition{Field: field, Op: OpAtMost, Value: value}
}

// Filter is an ordered list of conditions combined with AND.
// The zero value matches every row.
type Filter struct {
	conds []Condition
}

func Where(conds ...Condition) Filter {
	return Filter{conds: append([]Condition(nil), conds...)}
}

// And returns a copy of f with c appended.
func (f Filter) And(c Condition) Filter {
	conds := make([]Condition, 0, len(f.conds)+1)
	conds = append(conds, f.conds...)
	return Filter{conds: append(conds, c)}
}

func (f Filter) Conditions() []Condition {
	return append([]Condition(nil), f.conds...)
}

func (f Filter) Len() int { return len(f.conds) }

// sqlizer translates the filter into a WHERE clause using the column
// expressions a table exposes for each field name.
func (f Filter) sqlizer(fields map[string]string) (sq.Sqlizer, error) {
	and := sq.And{}
	for _, c := range f.conds {
		expr, ok := fields[c.Field]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, c.Field)
		}
		switch c.Op {
		case OpEq:
			and = append(and, sq.Eq{expr: c.Value})
		case OpContains:
			and = append(and, sq.ILike{expr: "%" + escapeLike(fmt.Sprint(c.Value)) + "%"})
		case OpAtLeast:
			and = append(and, sq.GtOrEq{expr: c.Value})
		case OpAtMost:
			and = append(and, sq.LtOrEq{expr: c.Value})
		default:
			return nil, fmt.Errorf("unsupported filter operator %q", c.Op)
		}
	}
	return and, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Page selects a window of a result set. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// Skip is the number of rows before the page. It is negative for Number < 1,
// which Validate rejects.
func (p Page) Skip() int {
	return p.Size * (p.Number - 1)
}

func (p Page) Validate() error {
	if p.Number < 1 {
		return fmt.Errorf("%w: page number %d, must be >= 1", ErrInvalidPage, p.Number)
	}
	if p.Size < 1 {
		return fmt.Errorf("%w: page size %d, must be >= 1", ErrInvalidPage, p.Size)
	}
	return nil
}
