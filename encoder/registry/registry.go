package registry

import (
	"reflect"
	"sync"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/encoder"
)

var once sync.Once

//nolint:gochecknoinits
func init() {
	once.Do(func() {
		types := []reflect.Type{
			reflect.TypeOf(core.DeprecatedCairoClass{}),
			reflect.TypeOf(core.SierraClass{}),
		}

		for _, t := range types {
			if err := encoder.RegisterType(t); err != nil {
				panic(err)
			}
		}
	})
}
