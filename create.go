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
	"mellium.im/xmpp/stanza"
)

// CreateNode adds a new node on the pubsub service with the provided
// configuration (or the default configuration if none is provided).
// It returns the identifier of the node that was created, which is the
// requested one unless the service reports that it assigned a different one.
func CreateNode(ctx context.Context, s *xmpp.Session, node string, cfg *form.Data) (string, error) {
	return CreateNodeIQ(ctx, s, stanza.IQ{}, node, cfg)
}

// CreateNodeIQ is like CreateNode except that it allows modifying the IQ.
// Changes to the IQ type will have no effect.
func CreateNodeIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, node string, cfg *form.Data) (string, error) {
	iq.Type = stanza.SetIQ
	payload := xmlstream.Wrap(
		nil,
		xml.StartElement{Name: xml.Name{Local: "create"}, Attr: []xml.Attr{{Name: xml.Name{Local: "node"}, Value: node}}},
	)
	if cfg != nil {
		submitted, _ := cfg.Submit()
		payload = xmlstream.MultiReader(payload, xmlstream.Wrap(
			submitted,
			xml.StartElement{Name: xml.Name{Local: "configure"}},
		))
	}

	var resp struct {
		XMLName xml.Name `xml:"http://jabber.org/protocol/pubsub pubsub"`
		Create  struct {
			Node string `xml:"node,attr"`
		} `xml:"create"`
	}
	err := s.UnmarshalIQElement(ctx, xmlstream.Wrap(
		payload,
		xml.StartElement{Name: xml.Name{Space: NS, Local: "pubsub"}},
	), iq, &resp)
	if err != nil {
		return "", err
	}
	if resp.Create.Node != "" {
		return resp.Create.Node, nil
	}
	return node, nil
}

// CreateInstantNode adds a new node on the pubsub service, leaving the choice
// of node identifier to the service.
// It returns the identifier the service assigned.
func CreateInstantNode(ctx context.Context, s *xmpp.Session) (string, error) {
	return CreateInstantNodeIQ(ctx, s, stanza.IQ{})
}

// CreateInstantNodeIQ is like CreateInstantNode except that it allows
// modifying the IQ.
// Changes to the IQ type will have no effect.
func CreateInstantNodeIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ) (string, error) {
	iq.Type = stanza.SetIQ
	var resp struct {
		XMLName xml.Name `xml:"http://jabber.org/protocol/pubsub pubsub"`
		Create  struct {
			Node string `xml:"node,attr"`
		} `xml:"create"`
	}
	req := Request{Verb: VerbCreate}
	err := s.UnmarshalIQElement(ctx, req.TokenReader(), iq, &resp)
	if err != nil {
		return "", err
	}
	return resp.Create.Node, nil
}
