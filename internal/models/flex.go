package models

import (
	"fmt"
	"strconv"
	"strings"
)

// FlexInt decodes numbers the service sometimes sends as strings or booleans.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	switch s {
	case "", "null", "false":
		*f = 0
		return nil
	case "true":
		*f = 1
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("flex int %q: %w", s, err)
	}
	*f = FlexInt(v)
	return nil
}

// Int returns the value, treating a nil pointer as zero.
func (f *FlexInt) Int() int {
	if f == nil {
		return 0
	}
	return int(*f)
}
