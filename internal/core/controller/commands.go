package controller

import "github.com/thenervelab/hippius-libp2p/pkg/types"

// command is the finite set of inbound requests the Controller serves,
// processed strictly in submission order.
type command interface{ isCommand() }

type cmdCreateTopic struct {
	topic types.Topic
}

func (cmdCreateTopic) isCommand() {}

type cmdJoinTopic struct {
	topic types.Topic
}

func (cmdJoinTopic) isCommand() {}

type cmdLeaveTopic struct {
	topic types.Topic
}

func (cmdLeaveTopic) isCommand() {}

type cmdPublish struct {
	topic   types.Topic
	payload []byte
	result  chan error
}

func (cmdPublish) isCommand() {}

type cmdListPeers struct {
	result chan []types.PeerID
}

func (cmdListPeers) isCommand() {}

type cmdShutdown struct {
	done chan struct{}
}

func (cmdShutdown) isCommand() {}
