package comp

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"

	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/stream"
	"github.com/kbukum/dspcore/validation"
)

// Config describes a component to create.
type Config struct {
	ID         uint32        `json:"id" validate:"required"`
	PipelineID uint32        `json:"pipeline_id" validate:"required"`
	Core       int           `json:"core" validate:"gte=0"`
	UUID       uuid.UUID     `json:"uuid"`
	Driver     string        `json:"driver,omitempty"`
	Params     stream.Params `json:"params" validate:"-"`
	// Options carries driver specific settings, decoded by each driver.
	Options map[string]any `json:"options,omitempty"`
}

// DecodeOptions decodes cfg.Options into out and validates it.
func DecodeOptions(cfg Config, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return errors.Internal(err)
	}
	if err := dec.Decode(cfg.Options); err != nil {
		return errors.InvalidArgument("options", err.Error()).WithCause(err)
	}
	return validation.Validate(out)
}
