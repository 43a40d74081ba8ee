package echoapi

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mradi/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses `?ordering=name,-created_at`.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindJSON decodes the request body into dst, rejecting unknown fields and mistyped values.
func bindJSON(ctx echo.Context, dst interface{}) error {
	dec := json.NewDecoder(ctx.Request().Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil || err == io.EOF {
		return nil
	}

	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &typeErr):
		msg := fmt.Sprintf("invalid value, expected %s", typeErr.Type)
		return core.NewFieldError(typeErr.Field, msg)
	case errors.As(err, &syntaxErr):
		return core.NewValidationError(errors.Errorf("malformed JSON at offset %d", syntaxErr.Offset))
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return core.NewFieldError(field, "unknown field")
	case err == io.ErrUnexpectedEOF:
		return core.NewValidationError(errors.New("malformed JSON"))
	}
	return errors.Wrap(err, "decoding request body")
}
