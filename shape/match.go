package shape

import "fmt"

type keys struct {
	primary   string
	alternate string
}

// matcher recognizes one wire layout. Matchers are pure; detect runs them
// in order and the first hit wins.
type matcher func(d document, k keys) (Shape, bool)

var matchers = [...]matcher{
	matchBareArray,
	matchPrimaryArray,
	matchAlternateArray,
	matchPrimaryObject,
	matchAlternateObject,
}

func matchBareArray(d document, _ keys) (Shape, bool) {
	n := d.root()
	if n.kind != nodeArray {
		return Shape{}, false
	}
	return Shape{Kind: ArrayOfObjects, Elements: n.elems}, true
}

func matchPrimaryArray(d document, k keys) (Shape, bool) {
	return arrayUnder(d, k.primary, ArrayOfObjects)
}

func matchAlternateArray(d document, k keys) (Shape, bool) {
	return arrayUnder(d, k.alternate, WrappedUnderAlternateKey)
}

func matchPrimaryObject(d document, k keys) (Shape, bool) {
	return objectUnder(d, k.primary)
}

func matchAlternateObject(d document, k keys) (Shape, bool) {
	return objectUnder(d, k.alternate)
}

func arrayUnder(d document, field string, kind Kind) (Shape, bool) {
	n := d.field(field)
	if n.kind != nodeArray {
		return Shape{}, false
	}
	return Shape{Kind: kind, Field: field, Elements: n.elems}, true
}

func objectUnder(d document, field string) (Shape, bool) {
	n := d.field(field)
	if n.kind != nodeObject {
		return Shape{}, false
	}
	return Shape{Kind: SingleObject, Field: field, Elements: n.elems}, true
}

func detect(d document, k keys) Shape {
	for _, m := range matchers {
		if s, ok := m(d, k); ok {
			return s
		}
	}
	s := Shape{Kind: Absent}
	for _, f := range []string{k.primary, k.alternate} {
		if n := d.field(f); n.kind == nodeScalar {
			s.Mismatch = fmt.Sprintf("field %q holds a %s, want array or object", f, n.typ)
			break
		}
	}
	return s
}
