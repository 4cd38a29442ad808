// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"context"
	"encoding/xml"
	"errors"
	"log"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/form"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/mux"
	"mellium.im/xmpp/stanza"
)

// NodeInfo describes a node for service discovery purposes.
type NodeInfo struct {
	// Type is the node type, normally "leaf" or "collection".
	Type string

	// Meta lists extra fields that are merged into the meta-data form
	// advertised for the node.
	Meta []form.Field
}

// Backend is the interface implemented by stores that can service pubsub
// requests.
//
// Methods are invoked with the unmodified from address of the requesting
// entity; access control is entirely the backend's responsibility.
// Any error that is not a stanza error or a pubsub error is treated as an
// internal failure and is not reported to the requesting entity in detail.
type Backend interface {
	// Publish stores or updates items on the node and triggers delivery of
	// any notifications.
	Publish(ctx context.Context, node string, requester jid.JID, items []Item) error

	// Subscribe creates or fetches a subscription to the node for the
	// subscriber and reports its state.
	Subscribe(ctx context.Context, node string, requester, subscriber jid.JID) (Subscription, error)

	// Unsubscribe removes the subscribers subscription to the node.
	Unsubscribe(ctx context.Context, node string, requester, subscriber jid.JID) error

	// SubscriptionOptions returns a form describing the subscribers options
	// for the node along with their current values.
	SubscriptionOptions(ctx context.Context, node string, requester, subscriber jid.JID) (*form.Data, error)

	// SetSubscriptionOptions applies submitted option values to the
	// subscribers subscription.
	SetSubscriptionOptions(ctx context.Context, node string, requester, subscriber jid.JID, options map[string][]string) error

	// Subscriptions lists the requesting entities subscriptions across all
	// nodes.
	Subscriptions(ctx context.Context, requester jid.JID) ([]Subscription, error)

	// Affiliations lists the requesting entities affiliations across all
	// nodes.
	Affiliations(ctx context.Context, requester jid.JID) ([]Affiliation, error)

	// Create makes a new node and returns its identifier.
	// If node is empty the backend assigns an instant node identifier.
	Create(ctx context.Context, node string, requester jid.JID) (string, error)

	// DefaultConfig returns a form describing the default node configuration
	// for new nodes of the given type ("leaf" or "collection").
	DefaultConfig(ctx context.Context, nodeType string) (*form.Data, error)

	// Config returns a form describing the nodes configuration along with
	// its current values.
	Config(ctx context.Context, node string, requester jid.JID) (*form.Data, error)

	// SetConfig applies configuration values to the node.
	// The values have already been filtered and checked against the form
	// returned by Config.
	SetConfig(ctx context.Context, node string, requester jid.JID, options map[string][]string) error

	// Items returns items published to the node, most recent first unless
	// ids are given in which case the listed items are returned in order.
	// If max is greater than zero at most max items are returned.
	Items(ctx context.Context, node string, requester jid.JID, max uint64, ids []string) ([]Item, error)

	// Retract removes the listed items from the node.
	Retract(ctx context.Context, node string, requester jid.JID, ids []string) error

	// Purge removes all items from the node.
	Purge(ctx context.Context, node string, requester jid.JID) error

	// Delete removes the node entirely.
	Delete(ctx context.Context, node string, requester jid.JID) error

	// NodeInfo describes a single node for service discovery.
	// Backends should return the zero value (and no error) for nodes that do
	// not exist.
	NodeInfo(ctx context.Context, node string) (NodeInfo, error)

	// Nodes lists the node identifiers advertised by service discovery.
	Nodes(ctx context.Context) ([]string, error)
}

// UnsupportedBackend refuses every operation with a feature-not-implemented
// error naming the feature that would be required to fulfill the request.
// Embed it in backends that only implement part of the Backend interface.
type UnsupportedBackend struct{}

var _ Backend = UnsupportedBackend{}

func (UnsupportedBackend) Publish(ctx context.Context, node string, requester jid.JID, items []Item) error {
	return Unsupported(FeaturePublish)
}

func (UnsupportedBackend) Subscribe(ctx context.Context, node string, requester, subscriber jid.JID) (Subscription, error) {
	return Subscription{}, Unsupported(FeatureSubscribe)
}

// Unsubscribe implements Backend.
// The refused feature is "subscribe", which covers both ends of the
// subscription lifecycle.
func (UnsupportedBackend) Unsubscribe(ctx context.Context, node string, requester, subscriber jid.JID) error {
	return Unsupported(FeatureSubscribe)
}

func (UnsupportedBackend) SubscriptionOptions(ctx context.Context, node string, requester, subscriber jid.JID) (*form.Data, error) {
	return nil, Unsupported(FeatureSubscriptionOptions)
}

func (UnsupportedBackend) SetSubscriptionOptions(ctx context.Context, node string, requester, subscriber jid.JID, options map[string][]string) error {
	return Unsupported(FeatureSubscriptionOptions)
}

func (UnsupportedBackend) Subscriptions(ctx context.Context, requester jid.JID) ([]Subscription, error) {
	return nil, Unsupported(FeatureRetrieveSubscriptions)
}

func (UnsupportedBackend) Affiliations(ctx context.Context, requester jid.JID) ([]Affiliation, error) {
	return nil, Unsupported(FeatureRetrieveAffiliations)
}

func (UnsupportedBackend) Create(ctx context.Context, node string, requester jid.JID) (string, error) {
	return "", Unsupported(FeatureCreateNodes)
}

func (UnsupportedBackend) DefaultConfig(ctx context.Context, nodeType string) (*form.Data, error) {
	return nil, Unsupported(FeatureRetrieveDefault)
}

func (UnsupportedBackend) Config(ctx context.Context, node string, requester jid.JID) (*form.Data, error) {
	return nil, Unsupported(FeatureConfigNode)
}

func (UnsupportedBackend) SetConfig(ctx context.Context, node string, requester jid.JID, options map[string][]string) error {
	return Unsupported(FeatureConfigNode)
}

func (UnsupportedBackend) Items(ctx context.Context, node string, requester jid.JID, max uint64, ids []string) ([]Item, error) {
	return nil, Unsupported(FeatureRetrieveItems)
}

func (UnsupportedBackend) Retract(ctx context.Context, node string, requester jid.JID, ids []string) error {
	return Unsupported(FeatureRetractItems)
}

func (UnsupportedBackend) Purge(ctx context.Context, node string, requester jid.JID) error {
	return Unsupported(FeaturePurgeNodes)
}

func (UnsupportedBackend) Delete(ctx context.Context, node string, requester jid.JID) error {
	return Unsupported(FeatureDeleteNodes)
}

func (UnsupportedBackend) NodeInfo(ctx context.Context, node string) (NodeInfo, error) {
	return NodeInfo{}, nil
}

func (UnsupportedBackend) Nodes(ctx context.Context) ([]string, error) {
	return nil, nil
}

// Service decodes pubsub requests, routes them to a backend, and writes the
// replies.
// It also answers service discovery queries about the service and its nodes
// when registered on a multiplexer that handles them.
type Service struct {
	// Backend services the decoded requests.
	Backend Backend

	// JID is the address that discovered nodes are reported under.
	JID jid.JID

	// Category, Type, and Name configure the service discovery identity.
	// Category defaults to "pubsub" and Type to "service".
	Category string
	Type     string
	Name     string

	// Features lists the pubsub features announced by service discovery.
	Features []Feature

	// HideNodes disables node enumeration through service discovery.
	HideNodes bool

	// Logger is used for logging backend failures that are not reported to
	// the requesting entity.
	Logger *log.Logger
}

// Handle returns an option that registers the service for handling requests
// in the pubsub and pubsub#owner namespaces.
func Handle(s *Service) mux.Option {
	return func(m *mux.ServeMux) {
		mux.IQ(stanza.GetIQ, xml.Name{Space: NS, Local: "pubsub"}, s)(m)
		mux.IQ(stanza.SetIQ, xml.Name{Space: NS, Local: "pubsub"}, s)(m)
		mux.IQ(stanza.GetIQ, xml.Name{Space: NSOwner, Local: "pubsub"}, s)(m)
		mux.IQ(stanza.SetIQ, xml.Name{Space: NSOwner, Local: "pubsub"}, s)(m)
	}
}

// HandleIQ implements mux.IQHandler.
// Errors returned by the backend are written to the stream as stanza errors
// and are not returned from the handler.
func (s *Service) HandleIQ(iq stanza.IQ, t xmlstream.TokenReadEncoder, start *xml.StartElement) error {
	ctx := context.Background()
	req, err := ReadRequest(iq, xmlstream.MultiReader(xmlstream.Token(*start), t))
	if err != nil {
		return s.writeError(t, iq, req, err)
	}
	payload, err := s.serve(ctx, req)
	if err != nil {
		return s.writeError(t, iq, req, err)
	}
	_, err = xmlstream.Copy(t, iq.Result(payload))
	return err
}

func (s *Service) serve(ctx context.Context, req Request) (xml.TokenReader, error) {
	b := s.Backend
	switch req.Verb {
	case VerbPublish:
		return nil, b.Publish(ctx, req.Node, req.From, req.Items)
	case VerbSubscribe:
		sub, err := b.Subscribe(ctx, req.Node, req.From, req.Subscriber)
		if err != nil {
			return nil, err
		}
		return wrapPayload(NS, sub.TokenReader()), nil
	case VerbUnsubscribe:
		return nil, b.Unsubscribe(ctx, req.Node, req.From, req.Subscriber)
	case VerbOptionsGet:
		data, err := b.SubscriptionOptions(ctx, req.Node, req.From, req.Subscriber)
		if err != nil {
			return nil, err
		}
		return wrapPayload(NS, optionsElement(req, data)), nil
	case VerbOptionsSet:
		return nil, b.SetSubscriptionOptions(ctx, req.Node, req.From, req.Subscriber, req.Options)
	case VerbSubscriptions:
		subs, err := b.Subscriptions(ctx, req.From)
		if err != nil {
			return nil, err
		}
		inner := make([]xml.TokenReader, 0, len(subs))
		for _, sub := range subs {
			inner = append(inner, sub.TokenReader())
		}
		return wrapPayload(NS, xmlstream.Wrap(
			xmlstream.MultiReader(inner...),
			xml.StartElement{Name: xml.Name{Local: "subscriptions"}},
		)), nil
	case VerbAffiliations:
		affiliations, err := b.Affiliations(ctx, req.From)
		if err != nil {
			return nil, err
		}
		inner := make([]xml.TokenReader, 0, len(affiliations))
		for _, a := range affiliations {
			inner = append(inner, a.TokenReader())
		}
		return wrapPayload(NS, xmlstream.Wrap(
			xmlstream.MultiReader(inner...),
			xml.StartElement{Name: xml.Name{Local: "affiliations"}},
		)), nil
	case VerbCreate:
		assigned, err := b.Create(ctx, req.Node, req.From)
		if err != nil {
			return nil, err
		}
		if assigned == req.Node {
			return nil, nil
		}
		return wrapPayload(NS, xmlstream.Wrap(nil, xml.StartElement{
			Name: xml.Name{Local: "create"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "node"}, Value: assigned}},
		})), nil
	case VerbDefault:
		if req.NodeType != "leaf" && req.NodeType != "collection" {
			return nil, stanza.Error{Type: stanza.Modify, Condition: stanza.NotAcceptable}
		}
		data, err := b.DefaultConfig(ctx, req.NodeType)
		if err != nil {
			return nil, err
		}
		return wrapPayload(NSOwner, xmlstream.Wrap(
			formReader(data),
			xml.StartElement{Name: xml.Name{Local: "default"}},
		)), nil
	case VerbConfigureGet:
		data, err := b.Config(ctx, req.Node, req.From)
		if err != nil {
			return nil, err
		}
		start := xml.StartElement{Name: xml.Name{Local: "configure"}}
		if req.Node != "" {
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "node"}, Value: req.Node})
		}
		return wrapPayload(NSOwner, xmlstream.Wrap(formReader(data), start)), nil
	case VerbConfigureSet:
		if len(req.Options) == 0 {
			return nil, nil
		}
		schema, err := b.Config(ctx, req.Node, req.From)
		if err != nil {
			return nil, err
		}
		options, err := checkForm(schema, req.Options)
		if err != nil {
			return nil, err
		}
		return nil, b.SetConfig(ctx, req.Node, req.From, options)
	case VerbItems:
		items, err := b.Items(ctx, req.Node, req.From, req.MaxItems, req.ItemIDs)
		if err != nil {
			return nil, err
		}
		inner := make([]xml.TokenReader, 0, len(items))
		for _, item := range items {
			inner = append(inner, item.TokenReader())
		}
		return wrapPayload(NS, xmlstream.Wrap(
			xmlstream.MultiReader(inner...),
			xml.StartElement{
				Name: xml.Name{Local: "items"},
				Attr: []xml.Attr{{Name: xml.Name{Local: "node"}, Value: req.Node}},
			},
		)), nil
	case VerbRetract:
		return nil, b.Retract(ctx, req.Node, req.From, req.ItemIDs)
	case VerbPurge:
		return nil, b.Purge(ctx, req.Node, req.From)
	case VerbDelete:
		return nil, b.Delete(ctx, req.Node, req.From)
	case VerbAffiliationsGet, VerbAffiliationsSet:
		return nil, Unsupported(FeatureModifyAffiliations)
	case VerbSubscriptionsGet, VerbSubscriptionsSet:
		return nil, Unsupported(FeatureManageSubscriptions)
	}
	return nil, stanza.Error{Type: stanza.Cancel, Condition: stanza.FeatureNotImplemented}
}

// wrapPayload wraps the payload of a reply in a pubsub element in the given
// namespace.
func wrapPayload(space string, payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(payload, xml.StartElement{
		Name: xml.Name{Space: space, Local: "pubsub"},
	})
}

// optionsElement composes the options element of a reply, echoing the node
// and subscriber of the request.
func optionsElement(req Request, data *form.Data) xml.TokenReader {
	start := xml.StartElement{Name: xml.Name{Local: "options"}}
	if req.Node != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "node"}, Value: req.Node})
	}
	a, err := req.Subscriber.MarshalXMLAttr(xml.Name{Local: "jid"})
	if err == nil && a.Value != "" {
		start.Attr = append(start.Attr, a)
	}
	return xmlstream.Wrap(formReader(data), start)
}

func formReader(data *form.Data) xml.TokenReader {
	if data == nil {
		return nil
	}
	return data.TokenReader()
}

func (s *Service) writeError(t xmlstream.TokenReadEncoder, iq stanza.IQ, req Request, err error) error {
	var e xmlstream.Marshaler
	var pubsubErr Error
	var stanzaErr stanza.Error
	switch {
	case errors.As(err, &pubsubErr):
		e = pubsubErr
	case errors.As(err, &stanzaErr):
		e = stanzaErr
	default:
		if s.Logger != nil {
			s.Logger.Printf("unexpected error handling %s request from %s: %v", req.Verb, iq.From, err)
		}
		e = stanza.Error{Type: stanza.Cancel, Condition: stanza.InternalServerError}
	}

	iq.To, iq.From = iq.From, iq.To
	iq.Type = stanza.ErrorIQ
	_, err = xmlstream.Copy(t, iq.Wrap(e.TokenReader()))
	return err
}
