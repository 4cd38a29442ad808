// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

//go:generate go run -tags=tools golang.org/x/tools/cmd/stringer -output=string.go -type=SubType,Condition,Feature,Verb -linecomment

// Package pubsub implements the XEP-0060 publish-subscribe protocol.
//
// It provides a service side that decodes pubsub requests, dispatches
// them to a backend, composes responses, and fans out event
// notifications, as well as a client side that builds requests and
// dispatches inbound events to callbacks.
package pubsub // import "mellium.im/pubsub"

// Various namespaces used by this package, provided as a convenience.
const (
	NS        = `http://jabber.org/protocol/pubsub`
	NSConfig  = `http://jabber.org/protocol/pubsub#node_config`
	NSErrors  = `http://jabber.org/protocol/pubsub#errors`
	NSEvent   = `http://jabber.org/protocol/pubsub#event`
	NSMeta    = `http://jabber.org/protocol/pubsub#meta-data`
	NSOptions = `http://jabber.org/protocol/pubsub#subscribe_options`
	NSOwner   = `http://jabber.org/protocol/pubsub#owner`
	NSPaging  = `http://jabber.org/protocol/pubsub#rsm`
)
