package interpreter

import "time"

// builtins returns the native functions installed into every interpreter's global environment.
func builtins() map[string]loxObject {
	return map[string]loxObject{
		"clock": &builtinFunction{
			name:  "clock",
			arity: 0,
			fn: func([]loxObject) loxObject {
				return loxNumber(float64(time.Now().UnixNano()) / float64(time.Second))
			},
		},
	}
}
