// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"bytes"
	"encoding/xml"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
)

// Item is a single item published to a node.
// The payload is the raw XML of the items single child element, if any.
type Item struct {
	ID      string
	Payload []byte
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (item Item) TokenReader() xml.TokenReader {
	return itemReader(item, xml.Name{Space: NS, Local: "item"})
}

// itemReader renders the item under the provided name, replaying the payload
// from its stored bytes.
// Payloads written into an enclosing element that establishes the namespace
// use a name with no space of their own.
func itemReader(item Item, name xml.Name) xml.TokenReader {
	var attrs []xml.Attr
	if item.ID != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "id"}, Value: item.ID})
	}
	start := xml.StartElement{Name: name, Attr: attrs}
	if len(item.Payload) == 0 {
		return xmlstream.Wrap(nil, start)
	}
	return xmlstream.Wrap(xml.NewDecoder(bytes.NewReader(item.Payload)), start)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (item Item) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, item.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface.
func (item Item) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := item.WriteXML(e)
	return err
}

// UnmarshalXML satisfies the xml.Unmarshaler interface.
// The payload is captured as the raw inner XML of the item element.
func (item *Item) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	data := struct {
		ID      string `xml:"id,attr"`
		Payload []byte `xml:",innerxml"`
	}{}
	err := d.DecodeElement(&data, &start)
	if err != nil {
		return err
	}
	item.ID = data.ID
	if len(data.Payload) > 0 {
		item.Payload = data.Payload
	}
	return nil
}

// Subscription is the state of a particular subscriber on a node.
//
// The Options field is never marshaled. It carries the subscription
// configuration between a service and its backing store.
type Subscription struct {
	Node    string
	JID     jid.JID
	SubID   string
	State   SubType
	Options map[string][]string
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (s Subscription) TokenReader() xml.TokenReader {
	var attrs []xml.Attr
	if s.Node != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "node"}, Value: s.Node})
	}
	a, err := s.JID.MarshalXMLAttr(xml.Name{Local: "jid"})
	if err == nil && a.Value != "" {
		attrs = append(attrs, a)
	}
	if s.SubID != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "subid"}, Value: s.SubID})
	}
	attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "subscription"}, Value: s.State.String()})
	return xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: NS, Local: "subscription"},
		Attr: attrs,
	})
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (s Subscription) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, s.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface.
func (s Subscription) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := s.WriteXML(e)
	return err
}

// UnmarshalXML satisfies the xml.Unmarshaler interface.
func (s *Subscription) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "node":
			s.Node = attr.Value
		case "jid":
			j, err := jid.Parse(attr.Value)
			if err != nil {
				return err
			}
			s.JID = j
		case "subid":
			s.SubID = attr.Value
		case "subscription":
			if err := s.State.UnmarshalXMLAttr(attr); err != nil {
				return err
			}
		}
	}
	return d.Skip()
}

// Affiliation is the association of an entity with a node.
// The state is one of the affiliations defined by the pubsub registry, eg.
// "owner", "publisher", or "outcast".
type Affiliation struct {
	Node  string
	State string
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (a Affiliation) TokenReader() xml.TokenReader {
	var attrs []xml.Attr
	if a.Node != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "node"}, Value: a.Node})
	}
	attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "affiliation"}, Value: a.State})
	return xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: NS, Local: "affiliation"},
		Attr: attrs,
	})
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (a Affiliation) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, a.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface.
func (a Affiliation) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := a.WriteXML(e)
	return err
}

// UnmarshalXML satisfies the xml.Unmarshaler interface.
func (a *Affiliation) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "node":
			a.Node = attr.Value
		case "affiliation":
			a.State = attr.Value
		}
	}
	return d.Skip()
}
