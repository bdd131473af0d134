// Package avro renders Confluent-framed Avro payloads as JSON text using the
// schema registry the scheduler's producers write to.
package avro

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/linkedin/goavro/v2"
	"github.com/riferrei/srclient"

	"schedadmin/internal/log"
)

// magicByte opens every Confluent wire-format message, followed by a
// big-endian 4 byte schema id.
const (
	magicByte  = 0
	headerSize = 5
)

// SchemaSource looks schemas up by id. *srclient.SchemaRegistryClient
// implements it.
type SchemaSource interface {
	GetSchema(schemaID int) (*srclient.Schema, error)
}

// Decoder turns registry-framed Avro binary into Avro JSON text. Codecs are
// compiled once per schema id.
type Decoder struct {
	source SchemaSource
	logger log.Logger

	mu     sync.RWMutex
	codecs map[int]*goavro.Codec
}

// NewRegistryDecoder creates a decoder backed by the registry at url.
func NewRegistryDecoder(url string, logger log.Logger) *Decoder {
	return NewDecoder(srclient.CreateSchemaRegistryClient(url), logger)
}

// NewDecoder creates a decoder over any schema source.
func NewDecoder(source SchemaSource, logger log.Logger) *Decoder {
	if logger == nil {
		logger = log.Global()
	}
	return &Decoder{source: source, logger: logger, codecs: make(map[int]*goavro.Codec)}
}

// SchemaID extracts the schema id of a framed payload.
func SchemaID(payload []byte) (int, bool) {
	if len(payload) < headerSize || payload[0] != magicByte {
		return 0, false
	}
	return int(binary.BigEndian.Uint32(payload[1:headerSize])), true
}

// Decode implements scheduler.PayloadDecoder. Payloads without the framing
// header are not recognised and return ok=false without error.
func (d *Decoder) Decode(_ context.Context, payload []byte) (string, bool, error) {
	id, framed := SchemaID(payload)
	if !framed {
		return "", false, nil
	}
	codec, err := d.codec(id)
	if err != nil {
		return "", false, err
	}
	native, _, err := codec.NativeFromBinary(payload[headerSize:])
	if err != nil {
		return "", false, fmt.Errorf("failed to decode avro payload with schema %d: %w", id, err)
	}
	text, err := codec.TextualFromNative(nil, native)
	if err != nil {
		return "", false, fmt.Errorf("failed to render avro payload with schema %d: %w", id, err)
	}
	return string(text), true, nil
}

func (d *Decoder) codec(id int) (*goavro.Codec, error) {
	d.mu.RLock()
	codec, ok := d.codecs[id]
	d.mu.RUnlock()
	if ok {
		return codec, nil
	}

	schema, err := d.source.GetSchema(id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schema %d: %w", id, err)
	}
	codec, err = goavro.NewCodec(schema.Schema())
	if err != nil {
		return nil, fmt.Errorf("failed to create AVRO codec for schema %d: %w", id, err)
	}
	d.logger.Debug("compiled avro schema", "id", id)

	d.mu.Lock()
	d.codecs[id] = codec
	d.mu.Unlock()
	return codec, nil
}

// Frame prepends the wire-format header for schema id to body.
func Frame(id int, body []byte) []byte {
	out := make([]byte, headerSize, headerSize+len(body))
	out[0] = magicByte
	binary.BigEndian.PutUint32(out[1:headerSize], uint32(id))
	return append(out, body...)
}
