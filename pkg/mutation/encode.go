package mutation

import (
	json "github.com/goccy/go-json"
)

// EncodeOp serializes an operation for transports (and journals) that speak
// JSON over the wire.
func EncodeOp(op Op) ([]byte, error) {
	return json.Marshal(op)
}

// DecodeOp is the inverse of EncodeOp.
func DecodeOp(data []byte) (Op, error) {
	var op Op
	err := json.Unmarshal(data, &op)
	return op, err
}

// EncodeResult serializes a success payload.
func EncodeResult(res Result) ([]byte, error) {
	return json.Marshal(res)
}

// DecodeResult is the inverse of EncodeResult.
func DecodeResult(data []byte) (Result, error) {
	var res Result
	err := json.Unmarshal(data, &res)
	return res, err
}
