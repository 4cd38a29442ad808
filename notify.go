// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"context"
	"encoding/xml"

	"mellium.im/xmlstream"
	"mellium.im/xmpp"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/pubsub/internal/shim"
)

// collectionHeader is the name of the stanza header that marks a
// notification as re-published through a collection node.
const collectionHeader = "Collection"

// PublishNotification is one subscribers share of a publish fan-out.
//
// Subscriptions lists the subscriptions that caused the notification to be
// sent; each subscription to a node other than the one published to adds a
// Collection header to the message that names the subscribed node.
type PublishNotification struct {
	Subscriber    jid.JID
	Subscriptions []Subscription
	Items         []EventItem
}

// NotifyPublish sends one event message per notification announcing that the
// items were published to or retracted from the node.
func NotifyPublish(ctx context.Context, s *xmpp.Session, service jid.JID, node string, notifications []PublishNotification) error {
	for _, n := range notifications {
		inner := make([]xml.TokenReader, 0, len(n.Items))
		for _, item := range n.Items {
			inner = append(inner, item.TokenReader())
		}
		payload := xmlstream.Wrap(
			xmlstream.MultiReader(inner...),
			xml.StartElement{
				Name: xml.Name{Local: "items"},
				Attr: []xml.Attr{{Name: xml.Name{Local: "node"}, Value: node}},
			},
		)
		err := sendNotification(ctx, s, service, n.Subscriber, node, payload, n.Subscriptions)
		if err != nil {
			return err
		}
	}
	return nil
}

// NotifyDelete sends one event message per subscriber announcing that the
// node was deleted.
// If redirect is not empty it is included as the URI of a replacement node.
func NotifyDelete(ctx context.Context, s *xmpp.Session, service jid.JID, node string, subscribers []jid.JID, redirect string) error {
	for _, subscriber := range subscribers {
		var inner xml.TokenReader
		if redirect != "" {
			inner = xmlstream.Wrap(nil, xml.StartElement{
				Name: xml.Name{Local: "redirect"},
				Attr: []xml.Attr{{Name: xml.Name{Local: "uri"}, Value: redirect}},
			})
		}
		payload := xmlstream.Wrap(inner, xml.StartElement{
			Name: xml.Name{Local: "delete"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "node"}, Value: node}},
		})
		err := sendNotification(ctx, s, service, subscriber, node, payload, nil)
		if err != nil {
			return err
		}
	}
	return nil
}

func sendNotification(ctx context.Context, s *xmpp.Session, from, to jid.JID, node string, payload xml.TokenReader, subscriptions []Subscription) error {
	var headers []shim.Header
	for _, sub := range subscriptions {
		if sub.Node != node {
			headers = append(headers, shim.Header{Name: collectionHeader, Value: sub.Node})
		}
	}
	body := xmlstream.Wrap(payload, xml.StartElement{
		Name: xml.Name{Space: NSEvent, Local: "event"},
	})
	if len(headers) > 0 {
		body = xmlstream.MultiReader(body, shim.Wrap(headers...))
	}
	msg := stanza.Message{To: to, From: from}
	return s.Send(ctx, msg.Wrap(body))
}
