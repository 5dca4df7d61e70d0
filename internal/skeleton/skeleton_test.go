package skeleton

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleValues = []string{
	`null`,
	`true`,
	`42`,
	`"text"`,
	`[]`,
	`{}`,
	`[1, 2, 3]`,
	`[{"a": 1}, {"b": 2}]`,
	`{"data": {"id": "1", "tags": ["x", "y"], "meta": {}}}`,
	`{"z": 1, "a": {"y": [], "b": [[{"k": null}]]}, "m": false}`,
	`{"nama": "Budi", "alamat": {"kota": "Jakarta", "kode_pos": "12345"}}`,
}

func mustMarshal(t *testing.T, s Skeleton) string {
	t.Helper()
	b, err := s.MarshalJSON()
	require.NoError(t, err)
	return string(b)
}

func TestExtract_Example(t *testing.T) {
	got := Extract(json.RawMessage(`{"data":{"id":"1","tags":["x","y"],"meta":{}}}`))

	want := Object{Fields: []Field{
		{Key: "data", Value: Object{Fields: []Field{
			{Key: "id", Value: Unknown},
			{Key: "tags", Value: Array{Elem: Unknown}},
			{Key: "meta", Value: Object{Fields: []Field{}}},
		}}},
	}}
	assert.True(t, Equal(want, got), "got %s", mustMarshal(t, got))
	assert.Equal(t, `{"data":{"id":null,"tags":[null],"meta":{}}}`, mustMarshal(t, got))
}

func TestExtract_Idempotent(t *testing.T) {
	for _, raw := range sampleValues {
		t.Run(raw, func(t *testing.T) {
			once := Extract(json.RawMessage(raw))
			twice := Extract(once)
			assert.True(t, Equal(once, twice), "once=%s twice=%s", mustMarshal(t, once), mustMarshal(t, twice))

			// Re-extracting the serialized form is also stable.
			b, err := json.Marshal(once)
			require.NoError(t, err)
			again := Extract(json.RawMessage(b))
			assert.True(t, Equal(once, again))
		})
	}
}

func TestExtract_PreservesKeyOrder(t *testing.T) {
	got := Extract(json.RawMessage(`{"z": 1, "a": {"y": 0, "b": 1, "c": {"q": 1, "p": 2}}, "m": false}`))

	obj, ok := got.(Object)
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, fieldKeys(obj))

	inner, ok := obj.Get("a")
	require.True(t, ok)
	assert.Equal(t, []string{"y", "b", "c"}, fieldKeys(inner.(Object)))

	deepest, _ := inner.(Object).Get("c")
	assert.Equal(t, []string{"q", "p"}, fieldKeys(deepest.(Object)))
}

func fieldKeys(o Object) []string {
	keys := make([]string, 0, len(o.Fields))
	for _, f := range o.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

func TestExtract_ArrayCollapse(t *testing.T) {
	assert.Equal(t, "[]", mustMarshal(t, Extract(json.RawMessage(`[]`))))

	first := Extract(json.RawMessage(`{"id": 1, "name": "a"}`))
	got := Extract(json.RawMessage(`[{"id": 1, "name": "a"}, {"other": true}, 3]`))
	arr, ok := got.(Array)
	require.True(t, ok)
	assert.True(t, Equal(first, arr.Elem))
	assert.Equal(t, `[{"id":null,"name":null}]`, mustMarshal(t, got))
}

func TestExtract_Scalars(t *testing.T) {
	for _, v := range []any{nil, "s", true, false, 1, 2.5, json.Number("7"), uint8(3)} {
		assert.Equal(t, KindUnknown, Extract(v).Kind(), "%#v", v)
	}
}

func TestExtract_GoValues(t *testing.T) {
	got := Extract(map[string]any{
		"b": []any{map[string]any{"y": 1, "x": 2}},
		"a": "x",
	})
	assert.Equal(t, `{"a":null,"b":[{"x":null,"y":null}]}`, mustMarshal(t, got))

	type user struct {
		Name  string   `json:"name"`
		Roles []string `json:"roles"`
	}
	assert.Equal(t, `{"name":null,"roles":[null]}`, mustMarshal(t, Extract(user{Name: "a", Roles: []string{"r"}})))
	assert.Equal(t, `[]`, mustMarshal(t, Extract([]any{})))
}

func TestExtract_InvalidRawIsUnknown(t *testing.T) {
	assert.Equal(t, KindUnknown, Extract(json.RawMessage(`{"a":`)).Kind())
	assert.Equal(t, KindUnknown, Extract(json.RawMessage(`not json`)).Kind())
	assert.Equal(t, KindUnknown, Extract(json.RawMessage(`{} {}`)).Kind())
	assert.Equal(t, KindUnknown, Extract(make(chan int)).Kind())
}

func TestExtract_UnknownMarkerDistinct(t *testing.T) {
	// A literal null inside the data and the marker share a serialization,
	// but the in-memory marker is not a decoded JSON value.
	s := Extract(json.RawMessage(`{"v": null}`))
	v, _ := s.(Object).Get("v")
	assert.Equal(t, Unknown, v)
	assert.NotEqual(t, nil, v)
}

func TestDecode_DuplicateKeys(t *testing.T) {
	s, err := Decode(strings.NewReader(`{"a": 1, "b": 2, "a": {"c": 3}}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"c":null},"b":null}`, mustMarshal(t, s))
}

func TestMarshal_NoHTMLEscapingAndUnicode(t *testing.T) {
	s := Extract(json.RawMessage(`{"<tag>&": 1, "mahasiswa_ñ": 2}`))
	assert.Equal(t, `{"<tag>&":null,"mahasiswa_ñ":null}`, mustMarshal(t, s))
}

func TestEqual(t *testing.T) {
	a := Extract(json.RawMessage(`{"a": 1, "b": [1]}`))
	b := Extract(json.RawMessage(`{"b": [1], "a": 1}`))
	c := Extract(json.RawMessage(`{"a": 1, "b": []}`))
	assert.True(t, Equal(a, a))
	assert.False(t, Equal(a, b), "key order matters")
	assert.False(t, Equal(a, c))
	assert.True(t, Equal(nil, Unknown))
}
