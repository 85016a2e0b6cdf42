package utils

import (
	"bytes"
	"encoding/json"
	"io"
)

// ExtraDataAfterJSONError is returned when the input contains data after the
// first JSON value.
type ExtraDataAfterJSONError struct{}

func (e *ExtraDataAfterJSONError) Error() string {
	return "extra data after JSON object"
}

// ToJSON serializes v to JSON without escaping HTML characters.
func ToJSON(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	// Encoder appends a trailing newline
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ToJSONIndent serializes v to indented JSON without escaping HTML characters.
func ToJSONIndent(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ToJSONStream serializes v to JSON and writes it to w.
func ToJSONStream(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	return enc.Encode(v)
}

// FromJSON deserializes data into T. Unknown fields and trailing data are
// rejected. Empty input yields the zero value.
//
//nolint:ireturn // Generic functions must return type parameter T
func FromJSON[T any](data []byte) (T, error) {
	var out T

	if len(data) == 0 {
		return out, nil
	}

	return FromJSONStream[T](bytes.NewReader(data))
}

// FromJSONStream deserializes a single JSON value from r into T. Unknown
// fields and trailing data are rejected; trailing whitespace is allowed.
//
//nolint:ireturn // Generic functions must return type parameter T
func FromJSONStream[T any](r io.Reader) (T, error) {
	var out T

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&out); err != nil {
		var zero T
		return zero, err
	}

	// Anything but EOF after the first value means multiple JSON documents
	if _, err := dec.Token(); err != io.EOF {
		var zero T
		return zero, &ExtraDataAfterJSONError{}
	}

	return out, nil
}
