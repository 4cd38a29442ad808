// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"context"
	"encoding/xml"

	"mellium.im/xmlstream"
	"mellium.im/xmpp"
	"mellium.im/xmpp/stanza"
)

// Retract removes the items with the given identifiers from the node.
// If notify is true the service is asked to send retraction notifications to
// the nodes subscribers.
func Retract(ctx context.Context, s *xmpp.Session, node string, notify bool, ids ...string) error {
	return RetractIQ(ctx, s, stanza.IQ{}, node, notify, ids...)
}

// RetractIQ is like Retract except that it allows modifying the IQ.
// Changes to the IQ type will have no effect.
func RetractIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, node string, notify bool, ids ...string) error {
	iq.Type = stanza.SetIQ
	retractAttrs := []xml.Attr{{Name: xml.Name{Local: "node"}, Value: node}}
	if notify {
		retractAttrs = append(retractAttrs, xml.Attr{
			Name:  xml.Name{Local: "notify"},
			Value: "true",
		})
	}
	items := make([]xml.TokenReader, 0, len(ids))
	for _, id := range ids {
		items = append(items, xmlstream.Wrap(
			nil,
			xml.StartElement{Name: xml.Name{Local: "item"}, Attr: []xml.Attr{{Name: xml.Name{Local: "id"}, Value: id}}},
		))
	}
	return s.UnmarshalIQElement(ctx, xmlstream.Wrap(
		xmlstream.Wrap(
			xmlstream.MultiReader(items...),
			xml.StartElement{Name: xml.Name{Local: "retract"}, Attr: retractAttrs},
		),
		xml.StartElement{Name: xml.Name{Space: NS, Local: "pubsub"}},
	), iq, nil)
}
