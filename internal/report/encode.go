package report

import (
	"encoding/json"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// JSON writes doc as indented JSON.
func JSON(w io.Writer, doc Document) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

// Msgpack writes doc in msgpack form.
func Msgpack(w io.Writer, doc Document) error {
	enc := msgpack.NewEncoder(w)
	return enc.Encode(doc)
}

// ReadMsgpack decodes a document written by Msgpack.
func ReadMsgpack(r io.Reader) (Document, error) {
	var doc Document
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}
