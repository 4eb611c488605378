package transport

import "encoding/json"

// Unwrap extracts the payload from a response envelope: data.data when
// present, else data when it is an object, else raw unchanged.
func Unwrap(raw any) any {
	outer, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	data, ok := outer["data"]
	if !ok || data == nil {
		return raw
	}
	inner, ok := data.(map[string]any)
	if !ok {
		return raw
	}
	if nested, ok := inner["data"]; ok && nested != nil {
		return nested
	}
	return inner
}

// Decode converts an unwrapped payload into T by round-tripping through JSON.
func Decode[T any](payload any) (T, error) {
	var out T
	raw, err := json.Marshal(payload)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
