package query

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/require"
)

func renderSpec(t *testing.T, spec *Spec) (string, []any) {
	t.Helper()
	sql, args, err := spec.Apply(sq.Select("item.id").From("item")).ToSql()
	require.NoError(t, err)
	return sql, args
}

func TestPredicatesCommunityScope(t *testing.T) {
	spec, err := Build(Items, "user-1", nil)
	require.NoError(t, err)

	sql, args := renderSpec(t, spec)
	require.Contains(t, sql, "item.visibility = ? OR item.owner_id = ?")
	require.Contains(t, args, "public")
	require.Contains(t, args, "user-1")
}

func TestPredicatesMineScope(t *testing.T) {
	spec, err := Build(Items, "user-1", map[string]string{"tab": "mine"})
	require.NoError(t, err)

	sql, args := renderSpec(t, spec)
	require.Contains(t, sql, "item.owner_id = ?")
	require.NotContains(t, sql, "visibility")
	require.Equal(t, []any{"user-1"}, args)
}

func TestPredicatesExactFilter(t *testing.T) {
	spec, err := Build(Items, "user-1", map[string]string{"category": "art"})
	require.NoError(t, err)

	sql, args := renderSpec(t, spec)
	require.Contains(t, sql, "item.category = ?")
	require.Contains(t, args, "art")
}

func TestPredicatesSearch(t *testing.T) {
	spec, err := Build(Items, "user-1", map[string]string{"search": "SunSet"})
	require.NoError(t, err)

	sql, args := renderSpec(t, spec)
	require.Contains(t, sql, "LOWER(item.title) LIKE ?")
	require.Contains(t, sql, "LOWER(item.body) LIKE ?")
	require.Contains(t, sql, "LOWER(item.tags) LIKE ?")

	// The term is lowercased and wrapped, never embedded in the SQL.
	require.Contains(t, args, "%sunset%")
	require.NotContains(t, sql, "sunset")
}

func TestPredicatesFavoritesOnly(t *testing.T) {
	spec, err := Build(Items, "user-1", map[string]string{"favorites": "true"})
	require.NoError(t, err)

	sql, args := renderSpec(t, spec)
	require.Contains(t, sql, "EXISTS (SELECT 1 FROM favorite WHERE favorite.item_id = item.id AND favorite.user_id = ?)")
	require.Contains(t, args, "user-1")
}

func TestPredicatesValuesNeverInSQL(t *testing.T) {
	spec, err := Build(Items, "attacker' OR '1'='1", map[string]string{
		"category": "art'; DROP TABLE item; --",
		"search":   "' OR 1=1 --",
	})
	require.NoError(t, err)

	sql, _ := renderSpec(t, spec)
	require.NotContains(t, sql, "DROP TABLE")
	require.NotContains(t, sql, "1=1")
	require.NotContains(t, sql, "attacker")
}

func TestOrderBy(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
		want   string
	}{
		{
			name:   "default_sort",
			params: nil,
			want:   "item.created_at DESC, item.id ASC",
		},
		{
			name:   "title_ascending",
			params: map[string]string{"sort": "title", "order": "asc"},
			want:   "item.title ASC, item.id ASC",
		},
		{
			name:   "rating_uses_aggregate_alias",
			params: map[string]string{"sort": "rating"},
			want:   "avg_rating DESC, item.id ASC",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			spec, err := Build(Items, "user-1", test.params)
			require.NoError(t, err)
			require.Equal(t, test.want, spec.OrderBy())
		})
	}
}

func TestDollarPlaceholderRendering(t *testing.T) {
	spec, err := Build(Items, "user-1", map[string]string{"category": "art"})
	require.NoError(t, err)

	stbl := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	sql, _, err := spec.Apply(stbl.Select("item.id").From("item")).ToSql()
	require.NoError(t, err)
	require.Contains(t, sql, "$1")
	require.NotContains(t, sql, "?")
}
