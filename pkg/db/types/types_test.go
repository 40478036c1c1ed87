package dbtypes

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Code  string `json:"code"`
	Cents int64  `json:"cents"`
}

func TestJSONRoundTripsThroughDriverValues(t *testing.T) {
	in := NewJSON(snapshot{Code: "SAVE10", Cents: 250})
	v, err := in.Value()
	require.NoError(t, err)

	var fromString JSON[snapshot]
	require.NoError(t, fromString.Scan(v))
	require.Equal(t, in.Val, fromString.Val)

	var fromBytes JSON[snapshot]
	require.NoError(t, fromBytes.Scan([]byte(v.(string))))
	require.Equal(t, in.Val, fromBytes.Val)

	var empty JSON[*snapshot]
	require.NoError(t, empty.Scan(nil))
	require.Nil(t, empty.Val)
}

func TestUUIDArrayParsesPostgresLiteral(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	arr := UUIDArray{a, b}
	v, err := arr.Value()
	require.NoError(t, err)

	var out UUIDArray
	require.NoError(t, out.Scan(v))
	require.Equal(t, arr, out)

	require.NoError(t, out.Scan("{}"))
	require.Empty(t, out)
}
