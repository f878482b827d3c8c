package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/kbukum/procspec/errors"
)

var (
	engine     *validator.Validate
	engineOnce sync.Once
)

func structEngine() *validator.Validate {
	engineOnce.Do(func() {
		engine = validator.New(validator.WithRequiredStructEnabled())
		// Report the key a user writes in config.yml, not the Go field name.
		engine.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
			if name == "" || name == "-" {
				return snakeCase(fld.Name)
			}
			return name
		})
	})
	return engine
}

// Validate checks a struct against its `validate` tags. Nested structs are
// walked, and field paths use mapstructure names ("tracing.sample_rate").
// The returned error is an INVALID_INPUT AppError with a "fields" detail.
func Validate(s any) error {
	err := structEngine().Struct(s)
	if err == nil {
		return nil
	}

	var failed validator.ValidationErrors
	if !stderrors.As(err, &failed) {
		return errors.Validation("validation failed").WithCause(err)
	}

	fields := make([]FieldError, len(failed))
	for i, fe := range failed {
		fields[i] = FieldError{Field: fieldPath(fe), Message: describe(fe)}
	}
	return fieldsError(fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		// Param is "Enabled true".
		return "is required when " + strings.Replace(fe.Param(), " ", " is ", 1)
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "hostname_port":
		return "must be host:port"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

// fieldPath drops the root struct name, so nested fields read "logging.level".
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return snakeCase(fe.Field())
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
