// Package runtime holds the process-wide dependency injection container.
// Components register and resolve themselves through dig.
package runtime

import (
	"go.uber.org/dig"
)

// container is the application's global dependency injection container.
var container *dig.Container

func init() {
	container = dig.New()
}

// GetContainer returns the global dependency injection container.
func GetContainer() *dig.Container {
	return container
}
