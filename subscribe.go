// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"context"
	"encoding/xml"

	"mellium.im/xmpp"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

// Subscribe requests a subscription to the node for the given JID and returns
// the subscription as reported by the service.
// If the service defers the request for owner approval the subscription is
// returned along with ErrPending, and if the service requires the
// subscription to be configured before it becomes active it is returned along
// with ErrUnconfigured.
func Subscribe(ctx context.Context, s *xmpp.Session, node string, subscriber jid.JID) (Subscription, error) {
	return SubscribeIQ(ctx, s, stanza.IQ{}, node, subscriber)
}

// SubscribeIQ is like Subscribe except that it allows modifying the IQ.
// Changes to the IQ type will have no effect.
func SubscribeIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, node string, subscriber jid.JID) (Subscription, error) {
	iq.Type = stanza.SetIQ
	var resp struct {
		XMLName      xml.Name     `xml:"http://jabber.org/protocol/pubsub pubsub"`
		Subscription Subscription `xml:"subscription"`
	}
	req := Request{Verb: VerbSubscribe, Node: node, Subscriber: subscriber}
	err := s.UnmarshalIQElement(ctx, req.TokenReader(), iq, &resp)
	if err != nil {
		return resp.Subscription, err
	}
	switch resp.Subscription.State {
	case SubPending:
		return resp.Subscription, ErrPending
	case SubUnconfigured:
		return resp.Subscription, ErrUnconfigured
	}
	return resp.Subscription, nil
}

// Unsubscribe removes the subscription of the given JID to the node.
func Unsubscribe(ctx context.Context, s *xmpp.Session, node string, subscriber jid.JID) error {
	return UnsubscribeIQ(ctx, s, stanza.IQ{}, node, subscriber)
}

// UnsubscribeIQ is like Unsubscribe except that it allows modifying the IQ.
// Changes to the IQ type will have no effect.
func UnsubscribeIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, node string, subscriber jid.JID) error {
	iq.Type = stanza.SetIQ
	req := Request{Verb: VerbUnsubscribe, Node: node, Subscriber: subscriber}
	return s.UnmarshalIQElement(ctx, req.TokenReader(), iq, nil)
}
