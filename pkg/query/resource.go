// Package query turns raw, client-supplied list parameters into typed,
// bounds-checked specifications and compiles them into parameterized
// SQL predicates against a static column allow-list.
package query

// Resource describes one listable resource type: its table, its
// ownership/visibility columns, and the allow-lists of filterable and
// sortable fields. Predicates are only ever built from these maps,
// never from client-supplied field names.
type Resource struct {
	Name             string
	Table            string
	OwnerColumn      string
	VisibilityColumn string

	// Filters maps a logical filter name to the physical column it
	// matches exactly against.
	Filters map[string]string

	// Sorts maps a logical sort name to the physical expression used
	// in ORDER BY. Expressions may reference aliases produced by the
	// aggregation joins (e.g. avg_rating).
	Sorts map[string]string

	// SearchColumns are matched case-insensitively as substrings,
	// combined with OR, when a search term is present.
	SearchColumns []string

	// FavoriteColumn, when set, names the column of the favorite edge
	// table that references this resource, enabling the favorites-only
	// filter.
	FavoriteColumn string

	DefaultSort string
}

// Items describes the content item resource (prompts, artworks,
// generation history entries).
var Items = &Resource{
	Name:             "item",
	Table:            "item",
	OwnerColumn:      "item.owner_id",
	VisibilityColumn: "item.visibility",
	Filters: map[string]string{
		"category": "item.category",
	},
	Sorts: map[string]string{
		"created": "item.created_at",
		"updated": "item.updated_at",
		"title":   "item.title",
		"usage":   "item.usage_count",
		"rating":  "avg_rating",
	},
	SearchColumns:  []string{"item.title", "item.body", "item.tags"},
	FavoriteColumn: "item_id",
	DefaultSort:    "created",
}

// Collections describes the user collection resource.
var Collections = &Resource{
	Name:             "collection",
	Table:            "collection",
	OwnerColumn:      "collection.owner_id",
	VisibilityColumn: "collection.visibility",
	Filters:          map[string]string{},
	Sorts: map[string]string{
		"created": "collection.created_at",
		"updated": "collection.updated_at",
		"name":    "collection.name",
	},
	SearchColumns: []string{"collection.name", "collection.description"},
	DefaultSort:   "created",
}

// Tournaments describes the tournament resource. Tournaments have no
// owner or visibility; every authenticated caller may list them.
var Tournaments = &Resource{
	Name:  "tournament",
	Table: "tournament",
	Filters: map[string]string{
		"status": "tournament.status",
	},
	Sorts: map[string]string{
		"start":    "tournament.start_date",
		"end":      "tournament.end_date",
		"deadline": "tournament.submission_deadline",
		"created":  "tournament.created_at",
	},
	SearchColumns: []string{"tournament.title", "tournament.description"},
	DefaultSort:   "start",
}
