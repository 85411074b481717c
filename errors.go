package simular

import "fmt"

// InvalidValueError is returned when a value/balance text argument is
// neither a decimal nor a 0x-hex literal.
type InvalidValueError struct {
	Text string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q: want decimal or 0x-hex", e.Text)
}
