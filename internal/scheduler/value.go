package scheduler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"

	"schedadmin/internal/log"
)

// ErrNotUTF8 is reported when a decoded payload is not valid UTF-8 text.
var ErrNotUTF8 = errors.New("payload is not valid UTF-8")

// DecodeBase64Text decodes a Base64 value into UTF-8 text.
func DecodeBase64Text(value string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("invalid base64 value: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", ErrNotUTF8
	}
	return string(raw), nil
}

// DecodeValue renders a Base64 payload as text. Values that are not Base64
// encoded UTF-8 are returned unchanged; the failure is logged, never raised.
func DecodeValue(value string) string {
	text, err := DecodeBase64Text(value)
	if err != nil {
		log.Global().Debug("payload rendered raw", "error", err)
		return value
	}
	return text
}

// PayloadDecoder turns raw payload bytes into text. ok is false when the
// decoder does not recognise the payload.
type PayloadDecoder interface {
	Decode(ctx context.Context, payload []byte) (text string, ok bool, err error)
}

// ValueDecoder tries each payload decoder in order before falling back to
// plain UTF-8 text. A decoder that recognises a payload but fails to decode
// it ends the chain with the raw value.
type ValueDecoder struct {
	decoders []PayloadDecoder
	logger   log.Logger
}

// NewValueDecoder builds a decoder chain; nil entries are skipped.
func NewValueDecoder(logger log.Logger, decoders ...PayloadDecoder) *ValueDecoder {
	if logger == nil {
		logger = log.Global()
	}
	vd := &ValueDecoder{logger: logger}
	for _, d := range decoders {
		if d != nil {
			vd.decoders = append(vd.decoders, d)
		}
	}
	return vd
}

// Decode renders value. Like DecodeValue it never fails: anything it cannot
// interpret is returned as the original string.
func (vd *ValueDecoder) Decode(ctx context.Context, value string) string {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		vd.logger.Debug("payload is not base64", "error", err)
		return value
	}
	for _, d := range vd.decoders {
		text, ok, err := d.Decode(ctx, raw)
		if err != nil {
			vd.logger.Warn("payload decoder failed, rendering raw value", "error", err)
			return value
		}
		if ok {
			return text
		}
	}
	if !utf8.Valid(raw) {
		vd.logger.Debug("payload is not utf-8 text", "bytes", len(raw))
		return value
	}
	return string(raw)
}
