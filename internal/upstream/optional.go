package upstream

import "bytes"

// Optional records whether a provider field was present. Absent and null
// both leave Set false; Value is then T's zero value.
type Optional[T any] struct {
	Value T
	Set   bool
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		o.Set = false
		return nil
	}

	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	o.Value = v
	o.Set = true
	return nil
}

// Or returns the value when set and fallback otherwise.
func (o Optional[T]) Or(fallback T) T {
	if o.Set {
		return o.Value
	}
	return fallback
}
