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

// GetConfig fetches the configurable options for the given node.
func GetConfig(ctx context.Context, s *xmpp.Session, node string) (*form.Data, error) {
	return GetConfigIQ(ctx, s, stanza.IQ{}, node)
}

// GetConfigIQ is like GetConfig except that it allows modifying the IQ.
// Changes to the IQ type will have no effect.
func GetConfigIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, node string) (*form.Data, error) {
	iq.Type = stanza.GetIQ
	var resp struct {
		XMLName   xml.Name `xml:"http://jabber.org/protocol/pubsub#owner pubsub"`
		Configure struct {
			XMLName xml.Name   `xml:"configure"`
			Data    *form.Data `xml:"jabber:x:data x"`
		} `xml:"configure"`
	}
	req := Request{Verb: VerbConfigureGet, Node: node}
	err := s.UnmarshalIQElement(ctx, req.TokenReader(), iq, &resp)
	return resp.Configure.Data, err
}

// GetDefaultConfig fetches the options that the service applies to newly
// created leaf nodes.
func GetDefaultConfig(ctx context.Context, s *xmpp.Session) (*form.Data, error) {
	return GetDefaultConfigIQ(ctx, s, stanza.IQ{})
}

// GetDefaultConfigIQ is like GetDefaultConfig except that it allows modifying
// the IQ.
// Changes to the IQ type will have no effect.
func GetDefaultConfigIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ) (*form.Data, error) {
	iq.Type = stanza.GetIQ
	var resp struct {
		XMLName xml.Name `xml:"http://jabber.org/protocol/pubsub#owner pubsub"`
		Default struct {
			XMLName xml.Name   `xml:"default"`
			Data    *form.Data `xml:"jabber:x:data x"`
		} `xml:"default"`
	}
	req := Request{Verb: VerbDefault}
	err := s.UnmarshalIQElement(ctx, req.TokenReader(), iq, &resp)
	return resp.Default.Data, err
}

// SetConfig submits the provided dataform to the service as the new
// configuration for the given node.
func SetConfig(ctx context.Context, s *xmpp.Session, node string, cfg *form.Data) error {
	return SetConfigIQ(ctx, s, stanza.IQ{}, node, cfg)
}

// SetConfigIQ is like SetConfig except that it allows modifying the IQ.
// Changes to the IQ type will have no effect.
func SetConfigIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, node string, cfg *form.Data) error {
	iq.Type = stanza.SetIQ
	data, _ := cfg.Submit()
	start := xml.StartElement{Name: xml.Name{Local: "configure"}}
	if node != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "node"}, Value: node})
	}
	return s.UnmarshalIQElement(ctx, xmlstream.Wrap(
		xmlstream.Wrap(
			data,
			start,
		),
		xml.StartElement{Name: xml.Name{Space: NSOwner, Local: "pubsub"}},
	), iq, nil)
}
