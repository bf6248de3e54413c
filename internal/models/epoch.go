package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Epoch is a unix timestamp in seconds. The service sends it either as a
// number or as a numeric string.
type Epoch int64

func (e *Epoch) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*e = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("epoch %q: %w", s, err)
	}
	*e = Epoch(v)
	return nil
}

func (e Epoch) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(e))
}

// Time converts to wall-clock time.
func (e Epoch) Time() time.Time {
	return time.Unix(int64(e), 0)
}
