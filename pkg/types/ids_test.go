package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPeerID_StringAndParseRoundTrip(t *testing.T) {
	var id PeerID
	for i := range id {
		id[i] = byte(i)
	}

	parsed, err := ParsePeerID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestPeerID_EmptyStringIsEmpty(t *testing.T) {
	require.Equal(t, "", EmptyPeerID.String())
	require.True(t, EmptyPeerID.IsEmpty())
}

func TestParsePeerID_RejectsInvalidInput(t *testing.T) {
	_, err := ParsePeerID("")
	require.ErrorIs(t, err, ErrInvalidPeerID)

	_, err = ParsePeerID("not-base58-!!!")
	require.ErrorIs(t, err, ErrInvalidPeerID)
}

func TestPeerIDFromBytes_RequiresExactly32Bytes(t *testing.T) {
	_, err := PeerIDFromBytes(make([]byte, 31))
	require.ErrorIs(t, err, ErrInvalidPeerID)

	id, err := PeerIDFromBytes(make([]byte, 32))
	require.NoError(t, err)
	require.True(t, id.IsEmpty())
}

func TestPeerID_LessIsLexicographic(t *testing.T) {
	var a, b PeerID
	a[0] = 1
	b[0] = 2

	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
	require.False(t, a.Less(a))
}

func TestPeerID_ShortStringTruncatesTo8Chars(t *testing.T) {
	var id PeerID
	for i := range id {
		id[i] = 0xAB
	}
	require.Len(t, id.ShortString(), 8)
}

func TestTopic_IsEmpty(t *testing.T) {
	require.True(t, Topic("").IsEmpty())
	require.False(t, Topic("news").IsEmpty())
}
