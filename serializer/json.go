package serializer

import "encoding/json"

// JSON is a human-readable serializer for callers who want inspectable
// wire payloads at the cost of size and speed relative to MsgPack.
type JSON struct{}

// NewJSON returns the JSON serializer.
func NewJSON() JSON { return JSON{} }

func (JSON) Dumps(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) Loads(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
