// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"context"
	"encoding/xml"

	"mellium.im/xmlstream"
	"mellium.im/xmpp"
	"mellium.im/xmpp/paging"
	"mellium.im/xmpp/stanza"
)

// Iter is an iterator over the items of a node.
type Iter struct {
	resp    *paging.Iter
	iter    *xmlstream.Iter
	current Item
	err     error
}

// Next returns true if there are more items to decode.
func (i *Iter) Next() bool {
	if i.err != nil {
		return false
	}
	for {
		if i.iter != nil && i.iter.Next() {
			start, r := i.iter.Current()
			// If we encounter a lone token that doesn't begin with a start element
			// (eg. a comment) skip it. This should never happen with XMPP, but we
			// don't want to panic in case this somehow happens so just skip it.
			if start == nil || start.Name.Local != "item" {
				continue
			}
			d := xml.NewTokenDecoder(xmlstream.MultiReader(xmlstream.Token(*start), r))
			item := Item{}
			i.err = d.Decode(&item)
			if i.err != nil {
				return false
			}
			i.current = item
			return true
		}
		// The items are nested one level down, inside an items element that is a
		// child of the response payload.
		if i.resp == nil || !i.resp.Next() {
			return false
		}
		start, r := i.resp.Current()
		if start != nil && start.Name.Local == "items" {
			i.iter = xmlstream.NewIter(r)
		}
	}
}

// Err returns the last error encountered by the iterator (if any).
func (i *Iter) Err() error {
	if i.err != nil {
		return i.err
	}
	if i.iter != nil {
		if err := i.iter.Err(); err != nil {
			return err
		}
	}
	if i.resp != nil {
		return i.resp.Err()
	}
	return nil
}

// Item returns the last item parsed by the iterator.
func (i *Iter) Item() Item {
	return i.current
}

// Close indicates that we are finished with the given iterator and processing
// the stream may continue.
// Calling it multiple times has no effect.
func (i *Iter) Close() error {
	if i.resp == nil {
		return nil
	}
	return i.resp.Close()
}

// FetchItems requests the items of the given node and returns an iterator over
// them in the order the service listed them.
// A max of 0 requests all items the service will provide.
//
// The iterator must be closed before anything else is done on the session.
// Any errors encountered while creating the iter are deferred until the iter
// is used.
func FetchItems(ctx context.Context, s *xmpp.Session, node string, max uint64) *Iter {
	return FetchItemsIQ(ctx, s, stanza.IQ{}, node, max)
}

// FetchItemsIQ is like FetchItems except that it allows modifying the IQ.
// Changes to the IQ type will have no effect.
func FetchItemsIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, node string, max uint64) *Iter {
	iq.Type = stanza.GetIQ
	req := Request{Verb: VerbItems, Node: node, MaxItems: max}
	resp, _, err := s.IterIQ(ctx, iq.Wrap(req.TokenReader()))
	if err != nil {
		return &Iter{err: err}
	}
	return &Iter{resp: paging.WrapIter(resp, 0)}
}
