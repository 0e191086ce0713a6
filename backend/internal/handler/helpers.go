package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/errors"
	mw "github.com/itchan-dev/modpolicy/shared/middleware"
)

func badRequest(format string, args ...any) error {
	return &errors.ErrorWithStatusCode{Message: fmt.Sprintf(format, args...), StatusCode: http.StatusBadRequest}
}

// requireActor answers 401 itself when the request carries no actor.
func requireActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor := mw.GetActorFromContext(r)
	if actor == nil {
		http.Error(w, "Please sign-in", http.StatusUnauthorized)
		return nil, false
	}
	return actor, true
}

// uuidParam reads a chi URL parameter.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, badRequest("invalid %s", name)
	}
	return id, nil
}

// optionalUUIDQuery returns nil for an absent query parameter.
func optionalUUIDQuery(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, badRequest("invalid %s", name)
	}
	return &id, nil
}

func optionalQuery(r *http.Request, name string) *string {
	if raw := r.URL.Query().Get(name); raw != "" {
		return &raw
	}
	return nil
}

// parseIntParam parses an integer parameter and returns a meaningful error.
func parseIntParam(param string, paramName string) (int, error) {
	val, err := strconv.Atoi(param)
	if err != nil || val < 0 {
		return 0, badRequest("invalid %s: must be a non-negative integer", paramName)
	}
	return val, nil
}

func includeDeleted(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("include_deleted"))
	return v
}

// listFilter reads limit, offset and include_deleted. Services clamp the limit to
// the configured page size.
func listFilter(r *http.Request) (domain.ListFilter, error) {
	filter := domain.ListFilter{IncludeDeleted: includeDeleted(r)}
	q := r.URL.Query()
	var err error
	if raw := q.Get("limit"); raw != "" {
		if filter.Limit, err = parseIntParam(raw, "limit"); err != nil {
			return domain.ListFilter{}, err
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if filter.Offset, err = parseIntParam(raw, "offset"); err != nil {
			return domain.ListFilter{}, err
		}
	}
	return filter, nil
}

// enumQuery converts an optional status-like query parameter.
func enumQuery[T ~string](r *http.Request, name string) *T {
	raw := optionalQuery(r, name)
	if raw == nil {
		return nil
	}
	v := T(*raw)
	return &v
}

func enumPtr[T ~string](raw *string) *T {
	if raw == nil {
		return nil
	}
	v := T(*raw)
	return &v
}
