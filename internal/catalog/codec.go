package catalog

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// schemaVersion is bumped whenever Schema changes incompatibly
const schemaVersion = 1

type envelope struct {
	Version int    `msgpack:"v"`
	Schema  Schema `msgpack:"schema"`
}

// Marshal encodes the current schema for persistent backends
func (c *Catalog) Marshal() ([]byte, error) {
	return msgpack.Marshal(envelope{Version: schemaVersion, Schema: c.Schema()})
}

// DecodeSchema decodes bytes produced by Marshal
func DecodeSchema(b []byte) (Schema, error) {
	var env envelope
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return Schema{}, fmt.Errorf("decode catalog: %w", err)
	}
	if env.Version != schemaVersion {
		return Schema{}, fmt.Errorf("catalog version %d not supported (want %d)", env.Version, schemaVersion)
	}
	return env.Schema, nil
}
