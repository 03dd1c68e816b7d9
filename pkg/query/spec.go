package query

import (
	"fmt"
	"strconv"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Scope is the read-visibility rule of a list request.
type Scope string

const (
	// ScopeMine restricts results to resources owned by the caller.
	ScopeMine Scope = "mine"

	// ScopeCommunity returns publicly visible resources plus the
	// caller's own.
	ScopeCommunity Scope = "community"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Spec is the validated, request-scoped representation of a list
// request. It is only ever constructed by Build, which enforces the
// resource's allow-lists and bounds.
type Spec struct {
	Resource  *Resource
	Principal string
	Scope     Scope

	// Filters holds exact-match predicates keyed by logical filter
	// name. Every key is guaranteed to be in Resource.Filters.
	Filters map[string]string

	Search        string
	FavoritesOnly bool

	Sort      string
	Direction Direction

	Limit  int
	Offset int
}

// InvalidParamError reports a malformed or out-of-range request
// parameter, naming the offending field.
type InvalidParamError struct {
	Param  string
	Reason string
}

func (e *InvalidParamError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Reason)
}

// Build parses raw request parameters into a Spec for the given
// resource. The caller's identity comes from principal, never from the
// parameters themselves. Unknown sort fields and directions are
// rejected rather than silently ignored.
func Build(res *Resource, principal string, params map[string]string) (*Spec, error) {
	spec := &Spec{
		Resource:  res,
		Principal: principal,
		Scope:     ScopeCommunity,
		Filters:   map[string]string{},
		Sort:      res.DefaultSort,
		Direction: Desc,
		Limit:     DefaultLimit,
	}

	switch params["tab"] {
	case "", "community":
		spec.Scope = ScopeCommunity
	case "mine":
		spec.Scope = ScopeMine
	default:
		return nil, &InvalidParamError{Param: "tab", Reason: "must be one of 'mine' or 'community'"}
	}

	if v, ok := params["limit"]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, &InvalidParamError{Param: "limit", Reason: "must be a positive integer"}
		}
		if n > MaxLimit {
			n = MaxLimit
		}
		spec.Limit = n
	}

	if v, ok := params["offset"]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, &InvalidParamError{Param: "offset", Reason: "must be a non-negative integer"}
		}
		spec.Offset = n
	}

	if v, ok := params["sort"]; ok && v != "" {
		if _, ok := res.Sorts[v]; !ok {
			return nil, &InvalidParamError{Param: "sort", Reason: fmt.Sprintf("unknown sort field %q", v)}
		}
		spec.Sort = v
	}

	if v, ok := params["order"]; ok && v != "" {
		switch Direction(v) {
		case Asc, Desc:
			spec.Direction = Direction(v)
		default:
			return nil, &InvalidParamError{Param: "order", Reason: "must be 'asc' or 'desc'"}
		}
	}

	if v, ok := params["favorites"]; ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, &InvalidParamError{Param: "favorites", Reason: "must be a boolean"}
		}
		if b && res.FavoriteColumn == "" {
			return nil, &InvalidParamError{Param: "favorites", Reason: fmt.Sprintf("resource %q cannot be favorited", res.Name)}
		}
		spec.FavoritesOnly = b
	}

	spec.Search = params["search"]

	for name := range res.Filters {
		if v, ok := params[name]; ok && v != "" {
			spec.Filters[name] = v
		}
	}

	return spec, nil
}
