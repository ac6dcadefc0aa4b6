package shape

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID int `json:"id"`
}

type recObserver struct {
	skipped    []int
	mismatches []string
}

func (o *recObserver) ItemSkipped(_ string, index int, _ error) { o.skipped = append(o.skipped, index) }
func (o *recObserver) ShapeMismatch(reason string)              { o.mismatches = append(o.mismatches, reason) }

func norm(t *testing.T, raw string, opts ...Option) Envelope[row] {
	t.Helper()
	env := Normalize([]byte(raw), JSONItem[row](), opts...)
	require.NotNil(t, env.Items, "items must never be nil")
	return env
}

func TestNormalizeCanonicalRows(t *testing.T) {
	env := norm(t, `{"code":200,"rows":[{"id":1},{"id":2}]}`)
	assert.Equal(t, 200, env.Code)
	assert.Equal(t, []row{{1}, {2}}, env.Items)
	assert.Equal(t, 2, env.Total)
	assert.Equal(t, ArrayOfObjects, env.Shape)
	assert.True(t, env.OK())
}

func TestNormalizeSingleObjectUnderData(t *testing.T) {
	env := norm(t, `{"code":200,"data":{"id":5}}`)
	assert.Equal(t, []row{{5}}, env.Items)
	assert.Equal(t, 1, env.Total)
	assert.Equal(t, SingleObject, env.Shape)
}

func TestNormalizeMissingPayload(t *testing.T) {
	env := norm(t, `{"code":200}`)
	assert.Empty(t, env.Items)
	assert.Equal(t, 0, env.Total)
	assert.Equal(t, Absent, env.Shape)
	assert.Equal(t, 200, env.Code)
}

func TestNormalizeSkipsBadElements(t *testing.T) {
	obs := &recObserver{}
	env := norm(t, `{"code":200,"rows":[{"id":1},"not-an-object"]}`, WithObserver(obs))
	assert.Equal(t, []row{{1}}, env.Items)
	assert.Equal(t, 1, env.Skipped)
	assert.Equal(t, []int{1}, obs.skipped)
}

func TestNormalizeLayouts(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		kind  Kind
		items []row
	}{
		{"bare array", `[{"id":1},{"id":2}]`, ArrayOfObjects, []row{{1}, {2}}},
		{"alternate array", `{"code":200,"data":[{"id":3}]}`, WrappedUnderAlternateKey, []row{{3}}},
		{"object under rows", `{"code":200,"rows":{"id":4}}`, SingleObject, []row{{4}}},
		{"rows wins over data", `{"rows":[{"id":1}],"data":[{"id":2}]}`, ArrayOfObjects, []row{{1}}},
		{"array beats object", `{"rows":{"id":1},"data":[{"id":2}]}`, WrappedUnderAlternateKey, []row{{2}}},
		{"null rows", `{"code":200,"rows":null}`, Absent, []row{}},
		{"empty rows", `{"code":200,"rows":[]}`, ArrayOfObjects, []row{}},
		{"null element", `{"rows":[null,{"id":9}]}`, ArrayOfObjects, []row{{9}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := norm(t, tc.raw)
			assert.Equal(t, tc.kind, env.Shape)
			assert.Equal(t, tc.items, env.Items)
		})
	}
}

func TestNormalizeTotalIsAdvisory(t *testing.T) {
	env := norm(t, `{"code":200,"total":40,"rows":[{"id":1}]}`)
	assert.Equal(t, 40, env.Total)
	assert.Len(t, env.Items, 1)
}

func TestNormalizeLenientHeader(t *testing.T) {
	env := norm(t, `{"code":"200","total":"7","message":"ok","rows":[{"id":1}]}`)
	assert.Equal(t, 200, env.Code)
	assert.Equal(t, 7, env.Total)
	assert.Equal(t, "ok", env.Message)
	assert.Equal(t, []row{{1}}, env.Items)
}

func TestNormalizeNumericMessage(t *testing.T) {
	env := norm(t, `{"code":500,"msg":42}`)
	assert.Equal(t, 500, env.Code)
	assert.Equal(t, "42", env.Message)
}

func TestNormalizeScalarPayloadIsMismatch(t *testing.T) {
	obs := &recObserver{}
	env := norm(t, `{"code":200,"rows":"oops"}`, WithObserver(obs))
	assert.Equal(t, Absent, env.Shape)
	assert.Empty(t, env.Items)
	assert.Contains(t, env.Message, `"rows"`)
	require.Len(t, obs.mismatches, 1)

	// A server message is kept over the diagnostic.
	env = norm(t, `{"code":200,"msg":"fine","rows":12}`)
	assert.Equal(t, "fine", env.Message)
}

func TestNormalizeGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "not json", "nul", "42", `"str"`} {
		env := norm(t, raw)
		assert.Equal(t, CodeError, env.Code, "input %q", raw)
		assert.Empty(t, env.Items)
		assert.NotEmpty(t, env.Message)
	}
}

func TestNormalizeNullPayload(t *testing.T) {
	obs := &recObserver{}
	env := norm(t, " null ", WithObserver(obs))
	assert.Equal(t, Absent, env.Shape)
	assert.Equal(t, 0, env.Code)
	assert.Empty(t, env.Items)
	assert.Equal(t, 0, env.Total)
	assert.Empty(t, env.Message)
	assert.False(t, env.Recovered)
	assert.Empty(t, obs.mismatches)

	sh := Detect([]byte("null"))
	assert.Equal(t, Absent, sh.Kind)
	assert.Empty(t, sh.Mismatch)
}

func TestNormalizeTruncatedRecovers(t *testing.T) {
	obs := &recObserver{}
	var env Envelope[row]
	require.NotPanics(t, func() {
		env = norm(t, `{"code":200,"rows":[{"id":1},{"id":2}`, WithObserver(obs))
	})
	assert.Equal(t, 200, env.Code)
	assert.LessOrEqual(t, len(env.Items), 2)
	assert.NotEmpty(t, env.Message)
	assert.NotEmpty(t, obs.mismatches)
	assert.True(t, env.Recovered)

	env = norm(t, `{"code":200,"rows":[{"id":1},{"id":2}]}`)
	assert.False(t, env.Recovered)
}

func TestNormalizeDecoderPanicIsSkipped(t *testing.T) {
	dec := func(raw []byte) (row, error) {
		var r row
		if err := json.Unmarshal(raw, &r); err != nil {
			return r, err
		}
		if r.ID == 2 {
			panic("boom")
		}
		return r, nil
	}
	env := Normalize([]byte(`{"rows":[{"id":1},{"id":2},{"id":3}]}`), dec)
	assert.Equal(t, []row{{1}, {3}}, env.Items)
	assert.Equal(t, 1, env.Skipped)
}

func TestNormalizeNilDecoder(t *testing.T) {
	env := Normalize[row]([]byte(`{"rows":[]}`), nil)
	assert.Equal(t, CodeError, env.Code)
	assert.NotNil(t, env.Items)
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		`{"code":200,"msg":"ok","rows":[{"id":3},{"id":1},{"id":2}]}`,
		`{"code":200,"data":{"id":5}}`,
		`[{"id":8},{"id":9}]`,
		`{"code":200}`,
	}
	for _, raw := range inputs {
		first := norm(t, raw)
		b, err := json.Marshal(first)
		require.NoError(t, err)
		second := norm(t, string(b))
		assert.Equal(t, first.Items, second.Items, "input %s", raw)
		assert.Equal(t, first.Code, second.Code)
		assert.Equal(t, first.Total, second.Total)
	}
}

func TestWithKeys(t *testing.T) {
	env := norm(t, `{"code":200,"list":[{"id":1}],"rows":[{"id":2}]}`, WithKeys("list", ""))
	assert.Equal(t, []row{{1}}, env.Items)

	// Alternate disabled: data is ignored.
	env = norm(t, `{"code":200,"data":[{"id":2}]}`, WithKeys("rows", ""))
	assert.Empty(t, env.Items)
}

func TestDetect(t *testing.T) {
	sh := Detect([]byte(`{"data":[{"id":1},{"id":2}]}`))
	assert.Equal(t, WrappedUnderAlternateKey, sh.Kind)
	assert.Equal(t, "data", sh.Field)
	assert.Len(t, sh.Elements, 2)

	sh = Detect([]byte(`{`))
	assert.Equal(t, Absent, sh.Kind)

	sh = Detect([]byte(`nope`))
	assert.Equal(t, Absent, sh.Kind)
	assert.NotEmpty(t, sh.Mismatch)
}

func TestNormalizeValue(t *testing.T) {
	tree := map[string]any{
		"code": 200,
		"rows": []any{map[string]any{"id": 1}, map[string]any{"id": 2}},
	}
	env := NormalizeValue(tree, JSONItem[row]())
	assert.Equal(t, []row{{1}, {2}}, env.Items)

	env = NormalizeValue(json.RawMessage(`{"data":{"id":7}}`), JSONItem[row]())
	assert.Equal(t, []row{{7}}, env.Items)

	env = NormalizeValue(`[{"id":4}]`, JSONItem[row]())
	assert.Equal(t, []row{{4}}, env.Items)

	env = NormalizeValue(nil, JSONItem[row]())
	assert.Equal(t, Absent, env.Shape)
	assert.Equal(t, 0, env.Code)
	assert.NotNil(t, env.Items)

	env = NormalizeValue(make(chan int), JSONItem[row]())
	assert.Equal(t, CodeError, env.Code)
	assert.NotNil(t, env.Items)
}

func TestDecoderErrorReachesObserver(t *testing.T) {
	want := errors.New("reject")
	var got error
	obs := &funcObserver{skip: func(_ string, _ int, err error) { got = err }}
	dec := func([]byte) (row, error) { return row{}, want }
	Normalize([]byte(`{"rows":[{"id":1}]}`), dec, WithObserver(obs))
	assert.ErrorIs(t, got, want)
}

type funcObserver struct {
	skip func(string, int, error)
}

func (o *funcObserver) ItemSkipped(f string, i int, err error) { o.skip(f, i, err) }
func (o *funcObserver) ShapeMismatch(string)                   {}
