// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"context"

	"mellium.im/xmpp"
	"mellium.im/xmpp/stanza"
)

// DeleteNode removes the node from the pubsub service entirely.
func DeleteNode(ctx context.Context, s *xmpp.Session, node string) error {
	return DeleteNodeIQ(ctx, s, stanza.IQ{}, node)
}

// DeleteNodeIQ is like DeleteNode except that it allows modifying the IQ.
// Changes to the IQ type will have no effect.
func DeleteNodeIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, node string) error {
	iq.Type = stanza.SetIQ
	req := Request{Verb: VerbDelete, Node: node}
	return s.UnmarshalIQElement(ctx, req.TokenReader(), iq, nil)
}
