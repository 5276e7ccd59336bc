package serializer

import "github.com/vmihailenco/msgpack/v5"

// MsgPack is the default serializer: a general-purpose binary object
// codec requiring no schema compilation, the closest ecosystem analogue
// to Python's default pickle.
type MsgPack struct{}

// NewMsgPack returns the default serializer.
func NewMsgPack() MsgPack { return MsgPack{} }

func (MsgPack) Dumps(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgPack) Loads(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
