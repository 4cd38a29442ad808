// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"context"
	"encoding/xml"
	"errors"
	"strconv"

	"mellium.im/xmlstream"
	"mellium.im/xmpp"
	"mellium.im/xmpp/form"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

// nodeTypeField is the node-config field naming the type of a node.
const nodeTypeField = "pubsub#node_type"

// Verb is a single pubsub protocol operation.
type Verb uint8

// A list of pubsub protocol operations.
const (
	VerbNone             Verb = iota
	VerbPublish               // publish
	VerbSubscribe             // subscribe
	VerbUnsubscribe           // unsubscribe
	VerbOptionsGet            // optionsGet
	VerbOptionsSet            // optionsSet
	VerbSubscriptions         // subscriptions
	VerbAffiliations          // affiliations
	VerbCreate                // create
	VerbDefault               // default
	VerbConfigureGet          // configureGet
	VerbConfigureSet          // configureSet
	VerbItems                 // items
	VerbRetract               // retract
	VerbPurge                 // purge
	VerbDelete                // delete
	VerbAffiliationsGet       // affiliationsGet
	VerbAffiliationsSet       // affiliationsSet
	VerbSubscriptionsGet      // subscriptionsGet
	VerbSubscriptionsSet      // subscriptionsSet
)

// param identifies one piece of a request that is read from or written to the
// wire by a verbs codec.
type param uint8

const (
	paramNode param = iota
	paramNodeOrEmpty
	paramNodeOrNone
	paramItems
	paramItemIDs
	paramJID
	paramMaxItems
	paramDefault
	paramConfigure
	paramOptions
)

// verbMeta describes how a verb appears on the wire: the IQ type it is sent
// with, the namespace of its pubsub wrapper, the local name of the verb
// element, and the parameters encoded on it, in order.
type verbMeta struct {
	iqType stanza.IQType
	space  string
	local  string
	params []param
}

var verbs = [...]verbMeta{
	VerbPublish:          {iqType: stanza.SetIQ, space: NS, local: "publish", params: []param{paramNode, paramItems}},
	VerbSubscribe:        {iqType: stanza.SetIQ, space: NS, local: "subscribe", params: []param{paramNodeOrEmpty, paramJID}},
	VerbUnsubscribe:      {iqType: stanza.SetIQ, space: NS, local: "unsubscribe", params: []param{paramNodeOrEmpty, paramJID}},
	VerbOptionsGet:       {iqType: stanza.GetIQ, space: NS, local: "options", params: []param{paramNodeOrEmpty, paramJID}},
	VerbOptionsSet:       {iqType: stanza.SetIQ, space: NS, local: "options", params: []param{paramNodeOrEmpty, paramJID, paramOptions}},
	VerbSubscriptions:    {iqType: stanza.GetIQ, space: NS, local: "subscriptions"},
	VerbAffiliations:     {iqType: stanza.GetIQ, space: NS, local: "affiliations"},
	VerbCreate:           {iqType: stanza.SetIQ, space: NS, local: "create", params: []param{paramNodeOrNone}},
	VerbDefault:          {iqType: stanza.GetIQ, space: NSOwner, local: "default", params: []param{paramDefault}},
	VerbConfigureGet:     {iqType: stanza.GetIQ, space: NSOwner, local: "configure", params: []param{paramNodeOrEmpty}},
	VerbConfigureSet:     {iqType: stanza.SetIQ, space: NSOwner, local: "configure", params: []param{paramNodeOrEmpty, paramConfigure}},
	VerbItems:            {iqType: stanza.GetIQ, space: NS, local: "items", params: []param{paramNode, paramMaxItems, paramItemIDs}},
	VerbRetract:          {iqType: stanza.SetIQ, space: NS, local: "retract", params: []param{paramNode, paramItemIDs}},
	VerbPurge:            {iqType: stanza.SetIQ, space: NSOwner, local: "purge", params: []param{paramNode}},
	VerbDelete:           {iqType: stanza.SetIQ, space: NSOwner, local: "delete", params: []param{paramNode}},
	VerbAffiliationsGet:  {iqType: stanza.GetIQ, space: NSOwner, local: "affiliations"},
	VerbAffiliationsSet:  {iqType: stanza.SetIQ, space: NSOwner, local: "affiliations"},
	VerbSubscriptionsGet: {iqType: stanza.GetIQ, space: NSOwner, local: "subscriptions"},
	VerbSubscriptionsSet: {iqType: stanza.SetIQ, space: NSOwner, local: "subscriptions"},
}

func lookupVerb(iqType stanza.IQType, space, local string) Verb {
	for v := VerbPublish; v <= VerbSubscriptionsSet; v++ {
		meta := verbs[v]
		if meta.iqType == iqType && meta.space == space && meta.local == local {
			return v
		}
	}
	return VerbNone
}

var errNoVerb = errors.New("pubsub: request has no verb")

// Request is a single decoded pubsub request.
//
// The zero value is not sendable; at minimum a verb must be set.
type Request struct {
	Verb Verb
	To   jid.JID
	From jid.JID

	// Node is the node identifier, empty for the root node.
	Node string

	// NodeType is the node type carried by default configuration requests,
	// normally "leaf" or "collection".
	NodeType string

	// Items holds the items of a publish request.
	Items []Item

	// ItemIDs holds the item identifiers of a retract or item retrieval
	// request.
	ItemIDs []string

	// MaxItems limits the number of items returned by an item retrieval
	// request. Zero means no limit.
	MaxItems uint64

	// Subscriber is the entity that a subscription related request acts on.
	Subscriber jid.JID

	// Options holds the values of a submitted configuration or subscription
	// options form.
	// A nil map means the request did not carry a form and an empty non-nil
	// map means the form was a cancellation.
	Options map[string][]string
}

// verbElement is the wire representation of the child of a pubsub payload.
type verbElement struct {
	XMLName  xml.Name
	Node     string     `xml:"node,attr"`
	JID      string     `xml:"jid,attr"`
	MaxItems string     `xml:"max_items,attr"`
	Items    []Item     `xml:"http://jabber.org/protocol/pubsub item"`
	Forms    []dataForm `xml:"jabber:x:data x"`
}

// ReadRequest decodes a pubsub request from r, which must be positioned at
// the start of a pubsub or pubsub-owner payload such as the readers passed to
// IQ handlers registered with a multiplexer.
// The addressing and type of the request are taken from iq.
func ReadRequest(iq stanza.IQ, r xml.TokenReader) (Request, error) {
	var payload struct {
		XMLName  xml.Name
		Children []verbElement `xml:",any"`
	}
	err := xml.NewTokenDecoder(r).Decode(&payload)
	if err != nil {
		return Request{}, err
	}

	// The verb is the first child found in the verb table; other children
	// are skipped, not errors.
	req := Request{To: iq.To, From: iq.From}
	var child verbElement
	for _, c := range payload.Children {
		if v := lookupVerb(iq.Type, c.XMLName.Space, c.XMLName.Local); v != VerbNone {
			req.Verb = v
			child = c
			break
		}
	}
	if req.Verb == VerbNone {
		return req, stanza.Error{Type: stanza.Cancel, Condition: stanza.FeatureNotImplemented}
	}
	for _, p := range verbs[req.Verb].params {
		if err := p.parse(&req, child); err != nil {
			return req, err
		}
	}
	return req, nil
}

func (p param) parse(req *Request, child verbElement) error {
	switch p {
	case paramNode:
		if child.Node == "" {
			return BadRequest(CondNodeIDRequired, "")
		}
		req.Node = child.Node
	case paramNodeOrEmpty, paramNodeOrNone:
		req.Node = child.Node
	case paramItems:
		req.Items = child.Items
	case paramItemIDs:
		for _, item := range child.Items {
			if item.ID == "" {
				return BadRequest(CondNone, "Missing item identifier")
			}
			req.ItemIDs = append(req.ItemIDs, item.ID)
		}
	case paramJID:
		if child.JID == "" {
			return BadRequest(CondJIDRequired, "")
		}
		j, err := jid.Parse(child.JID)
		if err != nil {
			return BadRequest(CondJIDRequired, "")
		}
		req.Subscriber = j
	case paramMaxItems:
		if child.MaxItems != "" {
			n, err := strconv.ParseUint(child.MaxItems, 10, 64)
			if err != nil || n == 0 {
				return BadRequest(CondNone, "Field max_items requires a positive integer value")
			}
			req.MaxItems = n
		}
	case paramDefault:
		req.NodeType = "leaf"
		if f, ok := findForm(child.Forms, NSConfig); ok && f.Type == "submit" {
			if vals := f.values()[nodeTypeField]; len(vals) > 0 && vals[0] != "" {
				req.NodeType = vals[0]
			}
		}
	case paramConfigure:
		return req.parseForm(child, NSConfig, "Missing configuration form")
	case paramOptions:
		return req.parseForm(child, NSOptions, "Missing options form")
	}
	return nil
}

func (req *Request) parseForm(child verbElement, typeNS, missing string) error {
	f, ok := findForm(child.Forms, typeNS)
	if !ok {
		return BadRequest(CondNone, missing)
	}
	switch f.Type {
	case "submit":
		req.Options = f.values()
	case "cancel":
		req.Options = map[string][]string{}
	default:
		return BadRequest(CondNone, "Unexpected form type")
	}
	return nil
}

func (p param) render(req Request, child *wireChild) {
	switch p {
	case paramNode:
		child.attr = append(child.attr, xml.Attr{Name: xml.Name{Local: "node"}, Value: req.Node})
	case paramNodeOrEmpty, paramNodeOrNone:
		if req.Node != "" {
			child.attr = append(child.attr, xml.Attr{Name: xml.Name{Local: "node"}, Value: req.Node})
		}
	case paramItems:
		for _, item := range req.Items {
			child.inner = append(child.inner, itemReader(item, xml.Name{Local: "item"}))
		}
	case paramItemIDs:
		for _, id := range req.ItemIDs {
			child.inner = append(child.inner, itemReader(Item{ID: id}, xml.Name{Local: "item"}))
		}
	case paramJID:
		a, err := req.Subscriber.MarshalXMLAttr(xml.Name{Local: "jid"})
		if err == nil && a.Value != "" {
			child.attr = append(child.attr, a)
		}
	case paramMaxItems:
		if req.MaxItems > 0 {
			child.attr = append(child.attr, xml.Attr{
				Name:  xml.Name{Local: "max_items"},
				Value: strconv.FormatUint(req.MaxItems, 10),
			})
		}
	case paramDefault:
		if req.NodeType != "" && req.NodeType != "leaf" {
			child.inner = append(child.inner, submission(NSConfig, map[string][]string{
				nodeTypeField: {req.NodeType},
			}))
		}
	case paramConfigure:
		child.inner = appendForm(child.inner, NSConfig, req.Options)
	case paramOptions:
		child.inner = appendForm(child.inner, NSOptions, req.Options)
	}
}

func appendForm(inner []xml.TokenReader, typeNS string, options map[string][]string) []xml.TokenReader {
	switch {
	case options == nil:
		return inner
	case len(options) == 0:
		return append(inner, form.Cancel("", "").TokenReader())
	}
	return append(inner, submission(typeNS, options))
}

type wireChild struct {
	attr  []xml.Attr
	inner []xml.TokenReader
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (req Request) TokenReader() xml.TokenReader {
	if req.Verb == VerbNone || int(req.Verb) >= len(verbs) {
		return xmlstream.Wrap(nil, xml.StartElement{Name: xml.Name{Space: NS, Local: "pubsub"}})
	}
	meta := verbs[req.Verb]
	var child wireChild
	for _, p := range meta.params {
		p.render(req, &child)
	}
	return xmlstream.Wrap(
		xmlstream.Wrap(
			xmlstream.MultiReader(child.inner...),
			xml.StartElement{Name: xml.Name{Local: meta.local}, Attr: child.attr},
		),
		xml.StartElement{Name: xml.Name{Space: meta.space, Local: "pubsub"}},
	)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (req Request) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, req.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface.
func (req Request) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := req.WriteXML(e)
	return err
}

// Send submits the request on the provided session and returns the reply.
// The reply does not need to be consumed in its entirety, but it must be
// closed before stream processing will resume.
func (req Request) Send(ctx context.Context, s *xmpp.Session) (xmlstream.TokenReadCloser, error) {
	return req.SendIQ(ctx, s, stanza.IQ{To: req.To, From: req.From})
}

// SendIQ is like Send except that it allows modifying the IQ.
// Changes to the IQ type will have no effect.
func (req Request) SendIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ) (xmlstream.TokenReadCloser, error) {
	if req.Verb == VerbNone || int(req.Verb) >= len(verbs) {
		return nil, errNoVerb
	}
	iq.Type = verbs[req.Verb].iqType
	return s.SendIQElement(ctx, req.TokenReader(), iq)
}
