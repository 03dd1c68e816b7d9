package query

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Predicates compiles the spec into a set of parameterized squirrel
// predicates. The same set must be applied to both the count query and
// the page query so that total and items stay consistent. Placeholder
// rewriting (?, $n) is left to the statement builder that eventually
// renders the query.
func (s *Spec) Predicates() []sq.Sqlizer {
	var preds []sq.Sqlizer

	res := s.Resource

	if res.VisibilityColumn != "" {
		switch s.Scope {
		case ScopeMine:
			preds = append(preds, sq.Eq{res.OwnerColumn: s.Principal})
		case ScopeCommunity:
			preds = append(preds, sq.Or{
				sq.Eq{res.VisibilityColumn: "public"},
				sq.Eq{res.OwnerColumn: s.Principal},
			})
		}
	}

	for name, value := range s.Filters {
		column := res.Filters[name] // keys validated by Build
		preds = append(preds, sq.Eq{column: value})
	}

	if s.Search != "" {
		pattern := "%" + strings.ToLower(s.Search) + "%"
		or := sq.Or{}
		for _, column := range res.SearchColumns {
			or = append(or, sq.Expr(fmt.Sprintf("LOWER(%s) LIKE ?", column), pattern))
		}
		preds = append(preds, or)
	}

	if s.FavoritesOnly {
		preds = append(preds, sq.Expr(
			fmt.Sprintf("EXISTS (SELECT 1 FROM favorite WHERE favorite.%s = %s.id AND favorite.user_id = ?)",
				res.FavoriteColumn, res.Table),
			s.Principal,
		))
	}

	return preds
}

// OrderBy resolves the logical sort name against the resource's
// allow-list into a physical ORDER BY expression. A secondary order on
// id keeps pagination stable when the sort column has duplicates.
func (s *Spec) OrderBy() string {
	expr := s.Resource.Sorts[s.Sort] // validated by Build
	dir := "DESC"
	if s.Direction == Asc {
		dir = "ASC"
	}
	return fmt.Sprintf("%s %s, %s.id ASC", expr, dir, s.Resource.Table)
}

// Apply attaches the compiled predicates to a select builder.
func (s *Spec) Apply(sb sq.SelectBuilder) sq.SelectBuilder {
	for _, pred := range s.Predicates() {
		sb = sb.Where(pred)
	}
	return sb
}
