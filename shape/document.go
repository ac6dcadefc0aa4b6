package shape

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	errEmpty     = errors.New("empty payload")
	errNotObject = errors.New("top-level value is not an object or array")
)

type nodeKind uint8

const (
	nodeMissing nodeKind = iota
	nodeNull
	nodeArray
	nodeObject
	nodeScalar
)

// node is one value of the decoded payload, independent of which parser
// produced it.
type node struct {
	kind  nodeKind
	elems [][]byte // nodeArray only
	typ   string   // JSON type name, for diagnostics
}

// meta is the envelope header read from the payload.
type meta struct {
	code     int
	hasCode  bool
	msg      string
	total    int
	hasTotal bool
}

// document is the decoded payload the matchers run on.
type document interface {
	root() node
	field(name string) node
}

// parse builds a strict document, falling back to a lenient one. malformed
// reports that the payload was not valid JSON and was only partially read.
func parse(raw []byte) (doc document, m meta, malformed bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, meta{}, false, errEmpty
	}
	// A bare null is an empty response, not garbage.
	if isNull(raw) {
		return &strictDoc{top: node{kind: nodeNull, typ: "null"}}, meta{}, false, nil
	}
	if raw[0] != '{' && raw[0] != '[' {
		return nil, meta{}, false, errNotObject
	}
	if d, m, err := parseStrict(raw); err == nil {
		return d, m, false, nil
	}
	d, m := parseLenient(raw)
	return d, m, !gjson.ValidBytes(raw), nil
}

// strict

type strictDoc struct {
	top    node
	fields map[string]json.RawMessage
}

func parseStrict(raw []byte) (*strictDoc, meta, error) {
	if raw[0] == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, meta{}, err
		}
		return &strictDoc{top: node{kind: nodeArray, elems: rawElems(elems), typ: "array"}}, meta{}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, meta{}, err
	}
	var m meta
	var err error
	if m.code, m.hasCode, err = strictInt(fields, "code"); err != nil {
		return nil, meta{}, err
	}
	if m.total, m.hasTotal, err = strictInt(fields, "total"); err != nil {
		return nil, meta{}, err
	}
	for _, name := range []string{"msg", "message"} {
		v, ok := fields[name]
		if !ok || isNull(v) {
			continue
		}
		if err := json.Unmarshal(v, &m.msg); err != nil {
			return nil, meta{}, fmt.Errorf("%s: %w", name, err)
		}
		break
	}
	return &strictDoc{top: node{kind: nodeObject, typ: "object"}, fields: fields}, m, nil
}

func strictInt(fields map[string]json.RawMessage, name string) (int, bool, error) {
	v, ok := fields[name]
	if !ok || isNull(v) {
		return 0, false, nil
	}
	var n int
	if err := json.Unmarshal(v, &n); err != nil {
		return 0, false, fmt.Errorf("%s: %w", name, err)
	}
	return n, true, nil
}

func (d *strictDoc) root() node { return d.top }

func (d *strictDoc) field(name string) node {
	if name == "" || d.fields == nil {
		return node{kind: nodeMissing}
	}
	v, ok := d.fields[name]
	if !ok {
		return node{kind: nodeMissing}
	}
	v = bytes.TrimSpace(v)
	switch {
	case len(v) == 0:
		return node{kind: nodeMissing}
	case isNull(v):
		return node{kind: nodeNull, typ: "null"}
	case v[0] == '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(v, &elems); err != nil {
			return node{kind: nodeScalar, typ: "invalid array"}
		}
		return node{kind: nodeArray, elems: rawElems(elems), typ: "array"}
	case v[0] == '{':
		return node{kind: nodeObject, elems: [][]byte{v}, typ: "object"}
	case v[0] == '"':
		return node{kind: nodeScalar, typ: "string"}
	case v[0] == 't' || v[0] == 'f':
		return node{kind: nodeScalar, typ: "boolean"}
	default:
		return node{kind: nodeScalar, typ: "number"}
	}
}

func rawElems(in []json.RawMessage) [][]byte {
	out := make([][]byte, len(in))
	for i, e := range in {
		out[i] = e
	}
	return out
}

func isNull(v []byte) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// lenient

type lenientDoc struct {
	res gjson.Result
}

func parseLenient(raw []byte) (*lenientDoc, meta) {
	res := gjson.ParseBytes(raw)
	d := &lenientDoc{res: res}
	if !res.IsObject() {
		return d, meta{}
	}
	var m meta
	m.code, m.hasCode = lenientInt(res.Get("code"))
	m.total, m.hasTotal = lenientInt(res.Get("total"))
	for _, name := range []string{"msg", "message"} {
		if s, ok := lenientString(res.Get(name)); ok {
			m.msg = s
			break
		}
	}
	return d, m
}

func (d *lenientDoc) root() node {
	if d.res.IsArray() {
		return gjsonNode(d.res)
	}
	return node{kind: nodeObject, typ: "object"}
}

func (d *lenientDoc) field(name string) node {
	if name == "" || !d.res.IsObject() {
		return node{kind: nodeMissing}
	}
	return gjsonNode(d.res.Get(escapePath(name)))
}

func gjsonNode(r gjson.Result) node {
	switch {
	case !r.Exists():
		return node{kind: nodeMissing}
	case r.Type == gjson.Null:
		return node{kind: nodeNull, typ: "null"}
	case r.IsArray():
		var elems [][]byte
		r.ForEach(func(_, v gjson.Result) bool {
			elems = append(elems, []byte(v.Raw))
			return true
		})
		return node{kind: nodeArray, elems: elems, typ: "array"}
	case r.IsObject():
		return node{kind: nodeObject, elems: [][]byte{[]byte(r.Raw)}, typ: "object"}
	case r.Type == gjson.String:
		return node{kind: nodeScalar, typ: "string"}
	case r.Type == gjson.Number:
		return node{kind: nodeScalar, typ: "number"}
	default:
		return node{kind: nodeScalar, typ: "boolean"}
	}
}

// lenientInt accepts numbers and numeric strings.
func lenientInt(r gjson.Result) (int, bool) {
	switch r.Type {
	case gjson.Number:
		if math.IsNaN(r.Num) || math.IsInf(r.Num, 0) {
			return 0, false
		}
		return int(r.Int()), true
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int(f), true
		}
	}
	return 0, false
}

func lenientString(r gjson.Result) (string, bool) {
	switch r.Type {
	case gjson.String:
		return r.Str, true
	case gjson.Number, gjson.True, gjson.False:
		return r.Raw, true
	}
	return "", false
}

// escapePath escapes a single object key for use as a gjson/sjson path.
func escapePath(key string) string {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		switch c := key[i]; c {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', ':', '(', ')', ',', '[', ']', '{', '}':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
