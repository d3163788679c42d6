package stack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDText(t *testing.T) {
	id := MarketID{Key: "main-market", ChainID: 31337}
	require.Equal(t, "Market-main-market-31337", id.String())

	data, err := id.MarshalText()
	require.NoError(t, err)
	var back MarketID
	require.NoError(t, back.UnmarshalText(data))
	require.Equal(t, id, back)

	var user UserID
	require.Error(t, user.UnmarshalText(data), "kind must match")
	require.Error(t, back.UnmarshalText([]byte("Market-nochain")))
	_, err = MarketID{ChainID: 1}.MarshalText()
	require.Error(t, err)
}

func TestSortIDs(t *testing.T) {
	in := []UserID{
		{Key: "b", ChainID: 2},
		{Key: "a", ChainID: 2},
		{Key: "z", ChainID: 1},
	}
	out := SortUserIDs(in)
	require.Equal(t, []UserID{{Key: "z", ChainID: 1}, {Key: "a", ChainID: 2}, {Key: "b", ChainID: 2}}, out)
	require.Equal(t, "b", in[0].Key, "input is not modified")
}

func TestOptionAdd(t *testing.T) {
	var order []string
	opt := Option(func(*Setup) { order = append(order, "first") })
	opt.Add(func(*Setup) { order = append(order, "second") }, func(*Setup) { order = append(order, "third") })
	opt(&Setup{})
	require.Equal(t, []string{"first", "second", "third"}, order)
}
