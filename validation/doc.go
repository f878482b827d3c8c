// Package validation checks configuration values before a runner starts.
//
// Struct tags cover most fields:
//
//	type TracerConfig struct {
//	    Endpoint   string  `validate:"required_if=Enabled true"`
//	    SampleRate float64 `validate:"gte=0,lte=1"`
//	}
//	err := validation.Validate(cfg)
//
// Checks that tags cannot express use the collector:
//
//	err := validation.New().
//	    Extension("catalog", cfg.Catalog, []string{".json", ".yaml", ".yml"}).
//	    Validate()
//
// Both return an *errors.AppError with code INVALID_INPUT whose "fields"
// detail lists every failed field.
package validation
