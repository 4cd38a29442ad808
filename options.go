// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"context"
	"encoding/xml"

	"mellium.im/xmlstream"
	"mellium.im/xmpp"
	"mellium.im/xmpp/form"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

// GetOptions fetches the subscription options form for the given JIDs
// subscription to the node.
func GetOptions(ctx context.Context, s *xmpp.Session, node string, subscriber jid.JID) (*form.Data, error) {
	return GetOptionsIQ(ctx, s, stanza.IQ{}, node, subscriber)
}

// GetOptionsIQ is like GetOptions except that it allows modifying the IQ.
// Changes to the IQ type will have no effect.
func GetOptionsIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, node string, subscriber jid.JID) (*form.Data, error) {
	iq.Type = stanza.GetIQ
	var resp struct {
		XMLName xml.Name `xml:"http://jabber.org/protocol/pubsub pubsub"`
		Options struct {
			XMLName xml.Name   `xml:"options"`
			Data    *form.Data `xml:"jabber:x:data x"`
		} `xml:"options"`
	}
	req := Request{Verb: VerbOptionsGet, Node: node, Subscriber: subscriber}
	err := s.UnmarshalIQElement(ctx, req.TokenReader(), iq, &resp)
	return resp.Options.Data, err
}

// SetOptions submits the provided subscription options form for the given
// JIDs subscription to the node.
func SetOptions(ctx context.Context, s *xmpp.Session, node string, subscriber jid.JID, data *form.Data) error {
	return SetOptionsIQ(ctx, s, stanza.IQ{}, node, subscriber, data)
}

// SetOptionsIQ is like SetOptions except that it allows modifying the IQ.
// Changes to the IQ type will have no effect.
func SetOptionsIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, node string, subscriber jid.JID, data *form.Data) error {
	iq.Type = stanza.SetIQ
	submitted, _ := data.Submit()
	attrs := []xml.Attr{}
	if node != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "node"}, Value: node})
	}
	attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "jid"}, Value: subscriber.String()})
	return s.UnmarshalIQElement(ctx, xmlstream.Wrap(
		xmlstream.Wrap(
			submitted,
			xml.StartElement{Name: xml.Name{Local: "options"}, Attr: attrs},
		),
		xml.StartElement{Name: xml.Name{Space: NS, Local: "pubsub"}},
	), iq, nil)
}
