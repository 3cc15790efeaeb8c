package alert

import (
	"fmt"

	"charge-sentinel/internal/model"
)

// Notifier delivers a newly created incident to an external channel
type Notifier interface {
	SendIncident(incident model.Incident) error
}

// Named is implemented by notifiers that label their own error metrics
type Named interface {
	Name() string
}

// NameOf returns the notifier's name, or its Go type when it has none
func NameOf(n Notifier) string {
	if named, ok := n.(Named); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", n)
}
