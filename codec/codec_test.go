package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type txn struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Amount float64 `json:"amount"`
}

func sample() []txn {
	return []txn{{ID: 1, Title: "coffee", Amount: -3.5}, {ID: 2, Title: "salary", Amount: 2500}}
}

func TestByNameRoundTrip(t *testing.T) {
	for _, name := range []string{"", NameJSON, NameSonic, NameCBOR, NameMsgpack} {
		t.Run("codec="+name, func(t *testing.T) {
			c, err := ByName[[]txn](name, 0)
			require.NoError(t, err)

			b, err := c.Encode(sample())
			require.NoError(t, err)
			got, err := c.Decode(b)
			require.NoError(t, err)
			assert.Equal(t, sample(), got)
		})
	}
}

func TestByNameUnknown(t *testing.T) {
	_, err := ByName[[]txn]("yaml", 0)
	require.Error(t, err)
}

func TestJSONAndSonicInteroperate(t *testing.T) {
	b, err := JSON[[]txn]{}.Encode(sample())
	require.NoError(t, err)
	got, err := Sonic[[]txn]{}.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
}

func TestMsgpackUsesJSONTags(t *testing.T) {
	b, err := Msgpack[txn]{}.Encode(txn{ID: 9, Title: "x"})
	require.NoError(t, err)
	var m map[string]any
	m, err = Msgpack[map[string]any]{}.Decode(b)
	require.NoError(t, err)
	assert.Contains(t, m, "title")
	assert.NotContains(t, m, "Title")
}

func TestLimitCodec(t *testing.T) {
	lc, err := ByName[[]txn](NameJSON, 16)
	require.NoError(t, err)

	b, err := lc.Encode(sample())
	require.NoError(t, err)
	_, err = lc.Decode(b)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "payload too large"))

	small, err := lc.Decode([]byte("[]"))
	require.NoError(t, err)
	assert.Empty(t, small)
}

func TestProtobufListRoundTrip(t *testing.T) {
	c := NewProtobufList(func() *wrapperspb.Int64Value { return &wrapperspb.Int64Value{} })

	in := []*wrapperspb.Int64Value{wrapperspb.Int64(1), wrapperspb.Int64(0), wrapperspb.Int64(-7)}
	b, err := c.Encode(in)
	require.NoError(t, err)

	out, err := c.Decode(b)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.True(t, proto.Equal(in[i], out[i]), "item %d", i)
	}

	empty, err := c.Decode(nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = c.Decode([]byte{0x05, 0x08})
	require.Error(t, err)
}
