// Package configbinder decodes loosely typed property maps, such as the connection sections of the
// configuration or the properties of a writer, into typed settings structs.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// DefaultTagName is the struct tag used when BindProperties is given an empty tag name.
const DefaultTagName = "mapstructure"

// BindProperties decodes properties into target, which must be a pointer to a struct.
// Fields are matched by tagName. Strings are accepted for numeric and boolean fields so values
// coming from environment variables decode cleanly.
func BindProperties(properties interface{}, target interface{}, tagName string) error {
	if tagName == "" {
		tagName = DefaultTagName
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          tagName,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(properties); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind properties to struct %s: %w", targetType.Name(), err)
	}
	return nil
}
