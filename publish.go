// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"context"
	"encoding/xml"

	"mellium.im/xmpp"
	"mellium.im/xmpp/stanza"
)

// Publish sends the item to the pubsub node and returns the item identifier
// under which it was stored, which is the requested one unless the service
// reports that it assigned a different one.
func Publish(ctx context.Context, s *xmpp.Session, node string, item Item) (string, error) {
	return PublishIQ(ctx, s, stanza.IQ{}, node, item)
}

// PublishIQ is like Publish except that it allows modifying the IQ.
// Changes to the IQ type will have no effect.
func PublishIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, node string, item Item) (string, error) {
	iq.Type = stanza.SetIQ
	var resp struct {
		XMLName xml.Name `xml:"http://jabber.org/protocol/pubsub pubsub"`
		Publish struct {
			Item struct {
				ID string `xml:"id,attr"`
			} `xml:"item"`
		} `xml:"publish"`
	}
	req := Request{Verb: VerbPublish, Node: node, Items: []Item{item}}
	err := s.UnmarshalIQElement(ctx, req.TokenReader(), iq, &resp)
	if resp.Publish.Item.ID == "" {
		return item.ID, err
	}
	return resp.Publish.Item.ID, err
}
