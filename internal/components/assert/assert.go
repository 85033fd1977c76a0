// Package assert panics on broken wiring, never on bad input from users or the portal.
package assert

import "fmt"

// NotNil panics when a required dependency was not provided.
func NotNil(value any, name string) {
	if value == nil {
		panic(fmt.Sprintf("assert: %s must not be nil", name))
	}
}

// NotEmptyStr panics when a required identifier is empty.
func NotEmptyStr(str string, name string) {
	if str == "" {
		panic(fmt.Sprintf("assert: %s must not be empty", name))
	}
}
