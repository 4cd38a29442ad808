// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"encoding/xml"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/mux"
	"mellium.im/xmpp/stanza"

	"mellium.im/pubsub/internal/shim"
)

// EventItem is a single entry in an items notification: either a published
// item or, if Retract is set, the retraction of one.
type EventItem struct {
	Item

	Retract bool
}

// TokenReader implements xmlstream.Marshaler.
// The element carries no namespace of its own so that it takes on the
// namespace of the enclosing event notification.
func (ei EventItem) TokenReader() xml.TokenReader {
	if !ei.Retract {
		return itemReader(ei.Item, xml.Name{Local: "item"})
	}
	start := xml.StartElement{Name: xml.Name{Local: "retract"}}
	if ei.ID != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: ei.ID})
	}
	return xmlstream.Wrap(nil, start)
}

// WriteXML implements xmlstream.WriterTo.
func (ei EventItem) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, ei.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (ei EventItem) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := ei.WriteXML(e)
	return err
}

// EventItems is a notification that items were published to or retracted
// from a node.
// Items preserves the order in which the entries appeared on the wire.
type EventItems struct {
	From    jid.JID
	To      jid.JID
	Node    string
	Headers map[string][]string
	Items   []EventItem
}

// EventDelete is a notification that a node was deleted.
// Redirect, when not empty, is the URI of a replacement node.
type EventDelete struct {
	From     jid.JID
	To       jid.JID
	Node     string
	Headers  map[string][]string
	Redirect string
}

// EventPurge is a notification that all items were removed from a node.
type EventPurge struct {
	From    jid.JID
	To      jid.JID
	Node    string
	Headers map[string][]string
}

// EventHandler responds to event notifications sent by a pubsub service.
// Any callback that is nil is skipped.
type EventHandler struct {
	ItemsReceived  func(EventItems)
	DeleteReceived func(EventDelete)
	PurgeReceived  func(EventPurge)
}

// HandleEvents returns an option that registers the handler for event
// notification messages.
func HandleEvents(h EventHandler) mux.Option {
	return func(m *mux.ServeMux) {
		name := xml.Name{Space: NSEvent, Local: "event"}
		mux.Message(stanza.MessageType(""), name, h)(m)
		mux.Message(stanza.NormalMessage, name, h)(m)
		mux.Message(stanza.HeadlineMessage, name, h)(m)
	}
}

// eventChild is a child of the items element: an item or retract element
// whose contents are forwarded opaquely.
type eventChild struct {
	XMLName xml.Name
	ID      string `xml:"id,attr"`
	Inner   []byte `xml:",innerxml"`
}

type eventMessage struct {
	stanza.Message

	Event struct {
		Items *struct {
			Node     string       `xml:"node,attr"`
			Children []eventChild `xml:",any"`
		} `xml:"http://jabber.org/protocol/pubsub#event items"`
		Delete *struct {
			Node     string `xml:"node,attr"`
			Redirect struct {
				URI string `xml:"uri,attr"`
			} `xml:"redirect"`
		} `xml:"http://jabber.org/protocol/pubsub#event delete"`
		Purge *struct {
			Node string `xml:"node,attr"`
		} `xml:"http://jabber.org/protocol/pubsub#event purge"`
	} `xml:"http://jabber.org/protocol/pubsub#event event"`

	Headers []shim.Header `xml:"http://jabber.org/protocol/shim headers>header"`
}

// HandleMessage implements mux.MessageHandler.
// Notifications without a from or to address and events without a recognized
// action element are dropped.
func (h EventHandler) HandleMessage(msg stanza.Message, t xmlstream.TokenReadEncoder) error {
	d := xml.NewTokenDecoder(t)
	var payload eventMessage
	err := d.Decode(&payload)
	if err != nil {
		return err
	}
	if msg.From.Equal(jid.JID{}) || msg.To.Equal(jid.JID{}) {
		return nil
	}

	headers := shim.Map(payload.Headers)
	event := payload.Event
	switch {
	case event.Items != nil:
		if h.ItemsReceived == nil {
			return nil
		}
		items := make([]EventItem, 0, len(event.Items.Children))
		for _, child := range event.Items.Children {
			item := EventItem{Item: Item{ID: child.ID}}
			switch child.XMLName.Local {
			case "item":
				if len(child.Inner) > 0 {
					item.Payload = child.Inner
				}
			case "retract":
				item.Retract = true
			default:
				continue
			}
			items = append(items, item)
		}
		h.ItemsReceived(EventItems{
			From:    msg.From,
			To:      msg.To,
			Node:    event.Items.Node,
			Headers: headers,
			Items:   items,
		})
	case event.Delete != nil:
		if h.DeleteReceived == nil {
			return nil
		}
		h.DeleteReceived(EventDelete{
			From:     msg.From,
			To:       msg.To,
			Node:     event.Delete.Node,
			Headers:  headers,
			Redirect: event.Delete.Redirect.URI,
		})
	case event.Purge != nil:
		if h.PurgeReceived == nil {
			return nil
		}
		h.PurgeReceived(EventPurge{
			From:    msg.From,
			To:      msg.To,
			Node:    event.Purge.Node,
			Headers: headers,
		})
	}
	return nil
}
