package config

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// AttributeMap holds backend specific attributes as they were decoded from JSON.
type AttributeMap map[string]interface{}

// TransformAttributeMapToStruct decodes the attributes into a new T using the `json` struct tags.
// T may be a struct or a pointer to one.
func TransformAttributeMapToStruct[T any](attributes AttributeMap) (T, error) {
	var out T
	var result interface{} = &out

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           result,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(map[string]interface{}(attributes)); err != nil {
		return out, errors.Wrapf(err, "cannot decode attributes into %T", out)
	}
	if len(md.Unused) != 0 {
		return out, errors.Errorf("unknown attributes %v for %T", md.Unused, out)
	}
	return out, nil
}
