package abi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		name       string
		typeName   string
		components []Component
		canonical  string
		dynamic    bool
		hasError   bool
	}{
		{name: "uint256", typeName: "uint256", canonical: "uint256"},
		{name: "bare_uint_alias", typeName: "uint", canonical: "uint256"},
		{name: "int8", typeName: "int8", canonical: "int8"},
		{name: "bool", typeName: "bool", canonical: "bool"},
		{name: "address", typeName: "address", canonical: "address"},
		{name: "bytes32", typeName: "bytes32", canonical: "bytes32"},
		{name: "bytes", typeName: "bytes", canonical: "bytes", dynamic: true},
		{name: "string", typeName: "string", canonical: "string", dynamic: true},
		{name: "fixed_array", typeName: "uint256[3]", canonical: "uint256[3]"},
		{name: "dynamic_array", typeName: "uint256[]", canonical: "uint256[]", dynamic: true},
		{name: "nested_array", typeName: "uint256[3][]", canonical: "uint256[3][]", dynamic: true},
		{name: "fixed_array_of_dynamic", typeName: "string[2]", canonical: "string[2]", dynamic: true},
		{
			name:     "static_tuple",
			typeName: "tuple",
			components: []Component{
				{Name: "owner", Type: "address"},
				{Name: "amount", Type: "uint256"},
			},
			canonical: "(address,uint256)",
		},
		{
			name:     "dynamic_tuple",
			typeName: "tuple",
			components: []Component{
				{Name: "id", Type: "uint64"},
				{Name: "uri", Type: "string"},
			},
			canonical: "(uint64,string)",
			dynamic:   true,
		},
		{
			name:     "nested_tuple_array",
			typeName: "tuple[2]",
			components: []Component{
				{Name: "a", Type: "uint128"},
				{Name: "b", Type: "uint128"},
			},
			canonical: "(uint128,uint128)[2]",
		},
		{name: "unknown_keyword", typeName: "varint", hasError: true},
		{name: "zero_uint_width", typeName: "uint0", hasError: true},
		{name: "zero_int_width", typeName: "int0", hasError: true},
		{name: "zero_padded_width", typeName: "uint08", hasError: true},
		{name: "zero_padded_bytes", typeName: "bytes04", hasError: true},
		{name: "unbalanced_brackets", typeName: "uint256[3", hasError: true},
		{name: "bad_uint_width", typeName: "uint7", hasError: true},
		{name: "oversized_uint", typeName: "uint512", hasError: true},
		{name: "oversized_bytes", typeName: "bytes33", hasError: true},
		{name: "sized_bool", typeName: "bool8", hasError: true},
		{name: "tuple_without_components", typeName: "tuple", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, err := ParseType(tt.typeName, tt.components)
			if tt.hasError {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.canonical, typ.Canonical())
			assert.Equal(t, tt.dynamic, typ.IsDynamic())
		})
	}
}

func TestHeadWords(t *testing.T) {
	uint256, err := ParseType("uint256", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, uint256.HeadWords())

	staticArray, err := ParseType("uint256[4]", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, staticArray.HeadWords())

	staticTuple, err := ParseType("tuple", []Component{
		{Name: "a", Type: "uint256[2]"},
		{Name: "b", Type: "address"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, staticTuple.HeadWords())

	// Dynamic types occupy exactly one offset slot in the head.
	dynamicArray, err := ParseType("uint256[]", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, dynamicArray.HeadWords())

	dynamicTuple, err := ParseType("tuple", []Component{
		{Name: "a", Type: "uint256"},
		{Name: "b", Type: "bytes"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, dynamicTuple.HeadWords())
}

func TestClassificationIsStructural(t *testing.T) {
	// Dynamic-ness depends only on the type structure, never on a value, so
	// parsing the same notation twice always agrees.
	for _, typeName := range []string{"uint256", "bytes", "string[2]", "uint8[2][3]", "address[]"} {
		a, err := ParseType(typeName, nil)
		require.NoError(t, err)
		b, err := ParseType(typeName, nil)
		require.NoError(t, err)
		assert.Equal(t, a.IsDynamic(), b.IsDynamic(), typeName)
		assert.Equal(t, a.Canonical(), b.Canonical(), typeName)
	}
}
