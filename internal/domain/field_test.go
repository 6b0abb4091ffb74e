package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldZeroValueIsUnset(t *testing.T) {
	var f Field[string]

	assert.True(t, f.IsUnset())
	assert.True(t, f.Missing())
	assert.False(t, f.IsSet())
	assert.False(t, f.IsNull())
}

func TestFieldSetAndGet(t *testing.T) {
	f := Set(int64(42))

	assert.True(t, f.IsSet())
	assert.False(t, f.Missing())

	v, ok := f.Get()
	require.True(t, ok)
	assert.Equal(t, int64(42), v)
	assert.Equal(t, int64(42), f.OrZero())
}

func TestFieldNull(t *testing.T) {
	f := Null[string]()

	assert.True(t, f.IsNull())
	assert.True(t, f.Missing())
	assert.False(t, f.IsSet())
	assert.False(t, f.IsUnset())

	_, ok := f.Get()
	assert.False(t, ok)
	assert.Equal(t, "", f.OrZero())
}

func TestFieldUnmarshalJSON(t *testing.T) {
	type record struct {
		Name  Field[string] `json:"name"`
		Stars Field[int64]  `json:"stars"`
		JIF   Field[float64] `json:"jif"`
	}

	testCases := []struct {
		name  string
		input string
		check func(t *testing.T, r record)
	}{
		{
			name:  "absent keys stay unset",
			input: `{}`,
			check: func(t *testing.T, r record) {
				assert.True(t, r.Name.IsUnset())
				assert.True(t, r.Stars.IsUnset())
				assert.True(t, r.JIF.IsUnset())
			},
		},
		{
			name:  "explicit null",
			input: `{"name": null, "stars": null}`,
			check: func(t *testing.T, r record) {
				assert.True(t, r.Name.IsNull())
				assert.True(t, r.Stars.IsNull())
				assert.True(t, r.JIF.IsUnset())
			},
		},
		{
			name:  "concrete values",
			input: `{"name": "AutoDock", "stars": 512, "jif": 9.1}`,
			check: func(t *testing.T, r record) {
				assert.Equal(t, "AutoDock", r.Name.OrZero())
				assert.Equal(t, int64(512), r.Stars.OrZero())
				assert.InDelta(t, 9.1, r.JIF.OrZero(), 0.001)
			},
		},
		{
			name:  "zero value is set, not missing",
			input: `{"stars": 0}`,
			check: func(t *testing.T, r record) {
				assert.True(t, r.Stars.IsSet())
				assert.Equal(t, int64(0), r.Stars.OrZero())
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var r record
			require.NoError(t, json.Unmarshal([]byte(tc.input), &r))
			tc.check(t, r)
		})
	}
}

func TestFieldUnmarshalJSONTypeMismatch(t *testing.T) {
	var f Field[int64]
	err := json.Unmarshal([]byte(`"not a number"`), &f)
	assert.Error(t, err)
}

func TestFieldMarshalJSON(t *testing.T) {
	set, err := json.Marshal(Set("MIT"))
	require.NoError(t, err)
	assert.Equal(t, `"MIT"`, string(set))

	null, err := json.Marshal(Null[string]())
	require.NoError(t, err)
	assert.Equal(t, "null", string(null))

	var unset Field[string]
	raw, err := json.Marshal(unset)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}
