// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"context"

	"mellium.im/xmpp"
	"mellium.im/xmpp/stanza"
)

// Purge removes all published items from the node while leaving the node
// itself in place.
func Purge(ctx context.Context, s *xmpp.Session, node string) error {
	return PurgeIQ(ctx, s, stanza.IQ{}, node)
}

// PurgeIQ is like Purge except that it allows modifying the IQ.
// Changes to the IQ type will have no effect.
func PurgeIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, node string) error {
	iq.Type = stanza.SetIQ
	req := Request{Verb: VerbPurge, Node: node}
	return s.UnmarshalIQElement(ctx, req.TokenReader(), iq, nil)
}
