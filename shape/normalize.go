package shape

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ItemDecoder decodes one element of the payload list.
type ItemDecoder[T any] func(raw []byte) (T, error)

var errNullItem = errors.New("null element")

// JSONItem decodes elements with encoding/json. Null elements are skipped.
func JSONItem[T any]() ItemDecoder[T] {
	return func(raw []byte) (T, error) {
		var v T
		err := json.Unmarshal(raw, &v)
		return v, err
	}
}

// Detect reports the wire layout of raw without decoding any item.
// Unreadable payloads report Absent with a Mismatch reason.
func Detect(raw []byte, opts ...Option) Shape {
	s := newSettings(opts)
	doc, _, _, err := parse(raw)
	if err != nil {
		return Shape{Kind: Absent, Mismatch: err.Error()}
	}
	return detect(doc, s.keys)
}

// Normalize converts a raw backend payload into the canonical envelope.
// It never panics and never returns an error; see the package doc for the
// recovery rules.
func Normalize[T any](raw []byte, dec ItemDecoder[T], opts ...Option) Envelope[T] {
	s := newSettings(opts)
	if dec == nil {
		return ErrorEnvelope[T]("normalize: nil item decoder")
	}

	doc, m, malformed, err := parse(raw)
	if err != nil {
		reason := "malformed payload: " + err.Error()
		s.obs.ShapeMismatch(reason)
		return ErrorEnvelope[T](reason)
	}

	sh := detect(doc, s.keys)
	items, skipped := decodeAll(sh, dec, s)

	env := Envelope[T]{
		Code:    m.code,
		Message: m.msg,
		Total:   len(items),
		Items:   items,
		Shape:   sh.Kind,
		Skipped: skipped,
	}
	if m.hasTotal {
		env.Total = m.total
	}
	if sh.Mismatch != "" {
		s.obs.ShapeMismatch(sh.Mismatch)
		if env.Message == "" {
			env.Message = sh.Mismatch
		}
	}
	if malformed {
		env.Recovered = true
		s.obs.ShapeMismatch("malformed payload: recovered leniently")
		if !m.hasCode {
			env.Code = CodeError
		}
		if env.Message == "" {
			env.Message = "malformed payload"
		}
	}
	return env
}

// NormalizeValue normalizes an already-decoded payload. Byte slices and
// strings are treated as raw JSON; anything else is marshaled first.
func NormalizeValue[T any](v any, dec ItemDecoder[T], opts ...Option) Envelope[T] {
	switch x := v.(type) {
	case []byte:
		return Normalize(x, dec, opts...)
	case json.RawMessage:
		return Normalize([]byte(x), dec, opts...)
	case string:
		return Normalize([]byte(x), dec, opts...)
	case nil:
		return Normalize([]byte("null"), dec, opts...)
	}
	b, err := json.Marshal(v)
	if err != nil {
		reason := "malformed payload: " + err.Error()
		newSettings(opts).obs.ShapeMismatch(reason)
		return ErrorEnvelope[T](reason)
	}
	return Normalize(b, dec, opts...)
}

func decodeAll[T any](sh Shape, dec ItemDecoder[T], s *settings) ([]T, int) {
	items := make([]T, 0, len(sh.Elements))
	skipped := 0
	for i, el := range sh.Elements {
		v, err := decodeItem(el, dec, s)
		if err != nil {
			skipped++
			s.obs.ItemSkipped(sh.Field, i, err)
			continue
		}
		items = append(items, v)
	}
	return items, skipped
}

func decodeItem[T any](el []byte, dec ItemDecoder[T], s *settings) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("item decoder panic: %v", r)
		}
	}()
	el = bytes.TrimSpace(el)
	if len(el) == 0 || isNull(el) {
		return v, errNullItem
	}
	if el[0] == '{' && len(s.aliases) > 0 {
		el = s.reconcile(el)
	}
	return dec(el)
}
