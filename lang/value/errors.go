package value

import "fmt"

func indexError(v Value, i int) error {
	return fmt.Errorf("%s index out of range: %d", v.Type(), i)
}
