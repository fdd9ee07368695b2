package pubsub

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

func TestDedup_SeenMarksAndReportsDuplicates(t *testing.T) {
	d := newDedup(4)
	env := &Envelope{Topic: types.Topic("t"), Sender: peerAt(1), Sequence: 1}

	require.False(t, d.Seen(env))
	require.True(t, d.Seen(env))
}

func TestDedup_DistinguishesBySequenceAndSender(t *testing.T) {
	d := newDedup(4)

	require.False(t, d.Seen(&Envelope{Sender: peerAt(1), Sequence: 1}))
	require.False(t, d.Seen(&Envelope{Sender: peerAt(1), Sequence: 2}))
	require.False(t, d.Seen(&Envelope{Sender: peerAt(2), Sequence: 1}))
}

func TestNewDedup_ClampsNonPositiveExpectedPeers(t *testing.T) {
	require.NotPanics(t, func() { newDedup(0) })
	require.NotPanics(t, func() { newDedup(-5) })
}
