package validator

import (
	"reflect"
	"sync"

	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/utils"
	"github.com/go-playground/validator/v10"
)

var (
	once sync.Once
	v    *validator.Validate
)

// resourceBounded is implemented by inputs that may be version 3 transactions.
type resourceBounded interface {
	IsV3() bool
}

func validateResourceBounds(fl validator.FieldLevel) bool {
	txn, ok := fl.Parent().Interface().(resourceBounded)
	if !ok {
		return false
	}
	if !txn.IsV3() {
		return true
	}

	field := fl.Field()
	switch field.Kind() {
	case reflect.Ptr, reflect.Interface:
		return !field.IsNil()
	case reflect.Map, reflect.Slice:
		return field.Len() > 0
	default:
		return !field.IsZero()
	}
}

// Validator returns a singleton that can be used to validate various objects
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New()

		if err := v.RegisterValidation("resource_bounds_required", validateResourceBounds, true); err != nil {
			panic("failed to register validation: " + err.Error())
		}

		// Register these types to use their string representation for validation
		// purposes
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			switch f := field.Interface().(type) {
			case felt.Felt:
				return f.String()
			case *felt.Felt:
				return f.String()
			}
			panic("not a felt")
		}, felt.Felt{}, &felt.Felt{})
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if n, ok := field.Interface().(utils.Network); ok {
				return n.String()
			}
			panic("not a utils.Network")
		}, utils.Network(0))
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if l, ok := field.Interface().(utils.LogLevel); ok {
				return l.String()
			}
			panic("not a utils.LogLevel")
		}, utils.LogLevel(0))
	})
	return v
}
