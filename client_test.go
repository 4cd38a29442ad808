// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub_test

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"reflect"
	"strconv"
	"testing"

	"mellium.im/pubsub"
	"mellium.im/pubsub/internal/xmpptest"
	"mellium.im/xmlstream"
	"mellium.im/xmpp"
	"mellium.im/xmpp/form"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/paging"
	"mellium.im/xmpp/stanza"
)

var clientRequestTestCases = [...]struct {
	send     func(context.Context, *xmpp.Session) error
	expected string
}{
	0: {
		send: func(ctx context.Context, s *xmpp.Session) error {
			return pubsub.DeleteNodeIQ(ctx, s, stanza.IQ{ID: "123"}, "princely_musings")
		},
		expected: `<iq xmlns="jabber:client" xmlns="jabber:client" type="set" id="123"><pubsub xmlns="http://jabber.org/protocol/pubsub#owner" xmlns="http://jabber.org/protocol/pubsub#owner"><delete xmlns="http://jabber.org/protocol/pubsub#owner" node="princely_musings"></delete></pubsub></iq>`,
	},
	1: {
		send: func(ctx context.Context, s *xmpp.Session) error {
			return pubsub.RetractIQ(ctx, s, stanza.IQ{ID: "123"}, "princely_musings", true, "ae890ac52d0df67ed7cfdf51b644e901", "previous")
		},
		expected: `<iq xmlns="jabber:client" xmlns="jabber:client" type="set" id="123"><pubsub xmlns="http://jabber.org/protocol/pubsub" xmlns="http://jabber.org/protocol/pubsub"><retract xmlns="http://jabber.org/protocol/pubsub" node="princely_musings" notify="true"><item xmlns="http://jabber.org/protocol/pubsub" id="ae890ac52d0df67ed7cfdf51b644e901"></item><item xmlns="http://jabber.org/protocol/pubsub" id="previous"></item></retract></pubsub></iq>`,
	},
	2: {
		send: func(ctx context.Context, s *xmpp.Session) error {
			_, err := pubsub.SubscribeIQ(ctx, s, stanza.IQ{ID: "123"}, "princely_musings", jid.MustParse("francisco@denmark.lit"))
			return err
		},
		expected: `<iq xmlns="jabber:client" xmlns="jabber:client" type="set" id="123"><pubsub xmlns="http://jabber.org/protocol/pubsub" xmlns="http://jabber.org/protocol/pubsub"><subscribe xmlns="http://jabber.org/protocol/pubsub" node="princely_musings" jid="francisco@denmark.lit"></subscribe></pubsub></iq>`,
	},
	3: {
		send: func(ctx context.Context, s *xmpp.Session) error {
			data := form.New(
				form.Hidden("FORM_TYPE", form.Value(pubsub.NSOptions)),
				form.Boolean("pubsub#deliver", form.Value("true")),
			)
			return pubsub.SetOptionsIQ(ctx, s, stanza.IQ{ID: "123"}, "princely_musings", jid.MustParse("francisco@denmark.lit"), data)
		},
		expected: `<iq xmlns="jabber:client" xmlns="jabber:client" type="set" id="123"><pubsub xmlns="http://jabber.org/protocol/pubsub" xmlns="http://jabber.org/protocol/pubsub"><options xmlns="http://jabber.org/protocol/pubsub" node="princely_musings" jid="francisco@denmark.lit"><x xmlns="jabber:x:data" xmlns="jabber:x:data" type="submit"><field xmlns="jabber:x:data" type="hidden" var="FORM_TYPE"><value xmlns="jabber:x:data">http://jabber.org/protocol/pubsub#subscribe_options</value></field><field xmlns="jabber:x:data" type="boolean" var="pubsub#deliver"><value xmlns="jabber:x:data">true</value></field></x></options></pubsub></iq>`,
	},
	4: {
		// An empty node configures the root node, so no node attribute is
		// rendered.
		send: func(ctx context.Context, s *xmpp.Session) error {
			cfg := form.New(
				form.Hidden("FORM_TYPE", form.Value(pubsub.NSConfig)),
				form.Text("pubsub#title", form.Value("Princely Musings (Atom)")),
			)
			return pubsub.SetConfigIQ(ctx, s, stanza.IQ{ID: "123"}, "", cfg)
		},
		expected: `<iq xmlns="jabber:client" xmlns="jabber:client" type="set" id="123"><pubsub xmlns="http://jabber.org/protocol/pubsub#owner" xmlns="http://jabber.org/protocol/pubsub#owner"><configure xmlns="http://jabber.org/protocol/pubsub#owner"><x xmlns="jabber:x:data" xmlns="jabber:x:data" type="submit"><field xmlns="jabber:x:data" type="hidden" var="FORM_TYPE"><value xmlns="jabber:x:data">http://jabber.org/protocol/pubsub#node_config</value></field><field xmlns="jabber:x:data" type="text-single" var="pubsub#title"><value xmlns="jabber:x:data">Princely Musings (Atom)</value></field></x></configure></pubsub></iq>`,
	},
	5: {
		send: func(ctx context.Context, s *xmpp.Session) error {
			cfg := form.New(
				form.Hidden("FORM_TYPE", form.Value(pubsub.NSConfig)),
				form.Boolean("pubsub#deliver_notifications", form.Value("true")),
			)
			_, err := pubsub.CreateNodeIQ(ctx, s, stanza.IQ{ID: "123"}, "princely_musings", cfg)
			return err
		},
		expected: `<iq xmlns="jabber:client" xmlns="jabber:client" type="set" id="123"><pubsub xmlns="http://jabber.org/protocol/pubsub" xmlns="http://jabber.org/protocol/pubsub"><create xmlns="http://jabber.org/protocol/pubsub" node="princely_musings"></create><configure xmlns="http://jabber.org/protocol/pubsub"><x xmlns="jabber:x:data" xmlns="jabber:x:data" type="submit"><field xmlns="jabber:x:data" type="hidden" var="FORM_TYPE"><value xmlns="jabber:x:data">http://jabber.org/protocol/pubsub#node_config</value></field><field xmlns="jabber:x:data" type="boolean" var="pubsub#deliver_notifications"><value xmlns="jabber:x:data">true</value></field></x></configure></pubsub></iq>`,
	},
}

func TestClientRequests(t *testing.T) {
	for i, tc := range clientRequestTestCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			var buf bytes.Buffer
			e := xml.NewEncoder(&buf)
			cs := xmpptest.NewClientServer(xmpptest.ServerHandlerFunc(func(r xmlstream.TokenReadEncoder, start *xml.StartElement) error {
				err := e.EncodeToken(*start)
				if err != nil {
					return err
				}
				_, err = xmlstream.Copy(e, r)
				if err != nil {
					return err
				}
				return e.Flush()
			}))
			err := tc.send(context.Background(), cs.Client)
			if !errors.Is(err, stanza.Error{Condition: stanza.ServiceUnavailable}) {
				t.Fatalf("unexpected error sending request: %v", err)
			}
			if s := buf.String(); s != tc.expected {
				t.Fatalf("wrong XML:\nwant=%s\n got=%s", tc.expected, s)
			}
		})
	}
}

type subscribeEnvelope struct {
	XMLName   xml.Name `xml:"http://jabber.org/protocol/pubsub pubsub"`
	Subscribe struct {
		Node string `xml:"node,attr"`
		JID  string `xml:"jid,attr"`
	} `xml:"subscribe"`
}

type subscriptionResponse struct {
	XMLName      xml.Name            `xml:"http://jabber.org/protocol/pubsub pubsub"`
	Subscription pubsub.Subscription `xml:"subscription"`
}

var subscribeStateTestCases = [...]struct {
	state pubsub.SubType
	err   error
}{
	0: {state: pubsub.SubSubscribed},
	1: {state: pubsub.SubPending, err: pubsub.ErrPending},
	2: {state: pubsub.SubUnconfigured, err: pubsub.ErrUnconfigured},
}

func TestSubscribeStates(t *testing.T) {
	respIQ := stanza.IQ{ID: "123", Type: stanza.ResultIQ}
	for i, tc := range subscribeStateTestCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			cs := xmpptest.NewClientServer(xmpptest.ServerHandlerFunc(func(e xmlstream.TokenReadEncoder, _ *xml.StartElement) error {
				var req subscribeEnvelope
				err := xml.NewTokenDecoder(e).Decode(&req)
				if err != nil {
					return err
				}
				sendIQ := struct {
					stanza.IQ
					Pubsub subscriptionResponse
				}{IQ: respIQ}
				sendIQ.Pubsub.Subscription = pubsub.Subscription{
					Node:  req.Subscribe.Node,
					JID:   jid.MustParse(req.Subscribe.JID),
					SubID: "ba49252aaa4f5d320c24d3766f0bdcade78c78d3",
					State: tc.state,
				}
				return e.Encode(sendIQ)
			}))
			sub, err := pubsub.SubscribeIQ(context.Background(), cs.Client, stanza.IQ{ID: "123"}, "princely_musings", jid.MustParse("francisco@denmark.lit"))
			if !errors.Is(err, tc.err) {
				t.Fatalf("wrong error: want=%v, got=%v", tc.err, err)
			}
			expected := pubsub.Subscription{
				Node:  "princely_musings",
				JID:   jid.MustParse("francisco@denmark.lit"),
				SubID: "ba49252aaa4f5d320c24d3766f0bdcade78c78d3",
				State: tc.state,
			}
			if !reflect.DeepEqual(sub, expected) {
				t.Errorf("wrong subscription:\nwant=\n%+v,\ngot=\n%+v", expected, sub)
			}
		})
	}
}

type publishEnvelope struct {
	XMLName xml.Name `xml:"http://jabber.org/protocol/pubsub pubsub"`
	Publish struct {
		Node string `xml:"node,attr"`
		Item struct {
			ID string `xml:"id,attr"`
		} `xml:"item"`
	} `xml:"publish"`
}

func TestPublishAssignedID(t *testing.T) {
	var gotNode, gotID string
	cs := xmpptest.NewClientServer(xmpptest.ServerHandlerFunc(func(e xmlstream.TokenReadEncoder, _ *xml.StartElement) error {
		var req publishEnvelope
		err := xml.NewTokenDecoder(e).Decode(&req)
		if err != nil {
			return err
		}
		gotNode = req.Publish.Node
		gotID = req.Publish.Item.ID
		sendIQ := struct {
			stanza.IQ
			Pubsub publishEnvelope
		}{IQ: stanza.IQ{ID: "123", Type: stanza.ResultIQ}}
		sendIQ.Pubsub.Publish.Node = req.Publish.Node
		sendIQ.Pubsub.Publish.Item.ID = "ae890ac52d0df67ed7cfdf51b644e901"
		return e.Encode(sendIQ)
	}))
	id, err := pubsub.PublishIQ(context.Background(), cs.Client, stanza.IQ{ID: "123"}, "princely_musings", pubsub.Item{
		ID:      "current",
		Payload: []byte(`<entry><title>Soliloquy</title></entry>`),
	})
	if err != nil {
		t.Fatalf("error publishing item: %v", err)
	}
	if id != "ae890ac52d0df67ed7cfdf51b644e901" {
		t.Errorf("wrong item ID: want=%q, got=%q", "ae890ac52d0df67ed7cfdf51b644e901", id)
	}
	if gotNode != "princely_musings" {
		t.Errorf("wrong node in request: want=%q, got=%q", "princely_musings", gotNode)
	}
	if gotID != "current" {
		t.Errorf("wrong item ID in request: want=%q, got=%q", "current", gotID)
	}
}

type itemsHolder struct {
	Node  string        `xml:"node,attr"`
	Items []pubsub.Item `xml:"item"`
}

type itemsResponse struct {
	XMLName xml.Name     `xml:"http://jabber.org/protocol/pubsub pubsub"`
	Items   *itemsHolder `xml:"items"`
	Set     *paging.Set  `xml:"http://jabber.org/protocol/rsm set"`
}

var fetchItemsTestCases = [...]struct {
	items []pubsub.Item
	set   *paging.Set
}{
	0: {},
	1: {
		items: []pubsub.Item{
			{ID: "1", Payload: []byte(`<entry><title>one</title></entry>`)},
			{ID: "2", Payload: []byte(`<entry><title>two</title></entry>`)},
		},
	},
	2: {
		// A result set management summary is skipped by the iterator.
		items: []pubsub.Item{
			{ID: "1", Payload: []byte(`<entry><title>one</title></entry>`)},
			{ID: "2", Payload: []byte(`<entry><title>two</title></entry>`)},
		},
		set: &paging.Set{Last: "2"},
	},
}

func TestFetchItems(t *testing.T) {
	respIQ := stanza.IQ{ID: "123", Type: stanza.ResultIQ}
	for i, tc := range fetchItemsTestCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			cs := xmpptest.NewClientServer(xmpptest.ServerHandlerFunc(func(e xmlstream.TokenReadEncoder, _ *xml.StartElement) error {
				var req struct {
					XMLName xml.Name `xml:"http://jabber.org/protocol/pubsub pubsub"`
					Items   struct {
						Node string `xml:"node,attr"`
					} `xml:"items"`
				}
				err := xml.NewTokenDecoder(e).Decode(&req)
				if err != nil {
					return err
				}
				sendIQ := struct {
					stanza.IQ
					Pubsub itemsResponse
				}{IQ: respIQ}
				if tc.items != nil {
					sendIQ.Pubsub.Items = &itemsHolder{
						Node:  req.Items.Node,
						Items: tc.items,
					}
				}
				sendIQ.Pubsub.Set = tc.set
				return e.Encode(sendIQ)
			}))
			iter := pubsub.FetchItemsIQ(context.Background(), cs.Client, stanza.IQ{ID: "123"}, "princely_musings", 0)
			var items []pubsub.Item
			for iter.Next() {
				items = append(items, iter.Item())
			}
			if err := iter.Err(); err != nil {
				t.Errorf("error iterating items: %v", err)
			}
			iter.Close()

			// Don't try to compare nil and empty slice with DeepEqual.
			if len(items) == 0 && len(tc.items) == 0 {
				return
			}
			if !reflect.DeepEqual(items, tc.items) {
				t.Errorf("wrong items:\nwant=\n%+v,\ngot=\n%+v", tc.items, items)
			}
		})
	}
}
