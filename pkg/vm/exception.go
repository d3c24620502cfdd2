package vm

import "fmt"

// JavaException represents a JVM exception being thrown.
type JavaException struct {
	ClassName string
	Message   string
	Object    *JObject // the thrown instance when raised by athrow
}

func (e *JavaException) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("JavaException: %s: %s", e.ClassName, e.Message)
	}
	return fmt.Sprintf("JavaException: %s", e.ClassName)
}

// NewJavaException creates an exception of the given internal class name.
func NewJavaException(className string) *JavaException {
	return &JavaException{ClassName: className}
}

// Throwf creates an exception with a formatted message.
func Throwf(className, format string, args ...any) *JavaException {
	return &JavaException{ClassName: className, Message: fmt.Sprintf(format, args...)}
}
