package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"inkwell/app/models"
	"inkwell/app/pagination"
	"inkwell/app/repositories"
)

var (
	// ErrNotFound is shared with the repositories so either side can be matched.
	ErrNotFound   = repositories.ErrNotFound
	ErrForbidden  = errors.New("not the author of this post")
	ErrOutOfRange = pagination.ErrOutOfRange
)

// NonFieldKey collects messages that belong to no single input field.
const NonFieldKey = "non_field_errors"

// ValidationError carries field-level messages for a rejected input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// input names of the reference columns
var fieldNames = map[string]string{
	"group_id":  "group",
	"author_id": "author",
	"post_id":   "post",
}

// invalid turns a model validation failure into a ValidationError.
func invalid(err error) error {
	fields := models.FieldErrors(err)
	if fields == nil {
		return fieldError(NonFieldKey, err.Error())
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if name, ok := fieldNames[k]; ok {
			k = name
		}
		out[k] = v
	}
	return &ValidationError{Fields: out}
}

func notFound(what string, key interface{}) error {
	return fmt.Errorf("%s %v: %w", what, key, ErrNotFound)
}
