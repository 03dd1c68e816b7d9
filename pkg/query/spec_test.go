package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildDefaults(t *testing.T) {
	spec, err := Build(Items, "user-1", nil)
	require.NoError(t, err)

	require.Equal(t, ScopeCommunity, spec.Scope)
	require.Equal(t, "user-1", spec.Principal)
	require.Equal(t, Items.DefaultSort, spec.Sort)
	require.Equal(t, Desc, spec.Direction)
	require.Equal(t, DefaultLimit, spec.Limit)
	require.Zero(t, spec.Offset)
	require.Empty(t, spec.Filters)
	require.False(t, spec.FavoritesOnly)
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name         string
		params       map[string]string
		invalidParam string
	}{
		{
			name:   "valid_full_request",
			params: map[string]string{"tab": "mine", "category": "art", "search": "sunset", "favorites": "true", "sort": "rating", "order": "asc", "limit": "50", "offset": "100"},
		},
		{
			name:         "unknown_tab",
			params:       map[string]string{"tab": "everyone"},
			invalidParam: "tab",
		},
		{
			name:         "unknown_sort_field",
			params:       map[string]string{"sort": "owner_id"},
			invalidParam: "sort",
		},
		{
			name:         "sql_in_sort_field",
			params:       map[string]string{"sort": "created_at; DROP TABLE item"},
			invalidParam: "sort",
		},
		{
			name:         "unknown_order",
			params:       map[string]string{"order": "sideways"},
			invalidParam: "order",
		},
		{
			name:         "negative_limit",
			params:       map[string]string{"limit": "-5"},
			invalidParam: "limit",
		},
		{
			name:         "non_numeric_limit",
			params:       map[string]string{"limit": "ten"},
			invalidParam: "limit",
		},
		{
			name:         "negative_offset",
			params:       map[string]string{"offset": "-1"},
			invalidParam: "offset",
		},
		{
			name:         "non_boolean_favorites",
			params:       map[string]string{"favorites": "yes please"},
			invalidParam: "favorites",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			spec, err := Build(Items, "user-1", test.params)
			if test.invalidParam == "" {
				require.NoError(t, err)
				require.NotNil(t, spec)
				return
			}

			require.Nil(t, spec)
			var invalidParam *InvalidParamError
			require.ErrorAs(t, err, &invalidParam)
			require.Equal(t, test.invalidParam, invalidParam.Param)
		})
	}
}

func TestBuildClampsLimit(t *testing.T) {
	spec, err := Build(Items, "user-1", map[string]string{"limit": "10000"})
	require.NoError(t, err)
	require.Equal(t, MaxLimit, spec.Limit)
}

func TestBuildIgnoresUnknownFilterKeys(t *testing.T) {
	// Only allow-listed filter names are consulted; anything else in
	// the query string is dropped, never compiled.
	spec, err := Build(Items, "user-1", map[string]string{
		"category": "art",
		"owner_id": "someone-else",
		"banana":   "split",
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"category": "art"}, spec.Filters)
}

func TestBuildFavoritesRequiresFavoritableResource(t *testing.T) {
	_, err := Build(Collections, "user-1", map[string]string{"favorites": "true"})
	var invalidParam *InvalidParamError
	require.ErrorAs(t, err, &invalidParam)
	require.Equal(t, "favorites", invalidParam.Param)
}
