// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"context"

	"mellium.im/xmpp/disco"
	"mellium.im/xmpp/disco/info"
	"mellium.im/xmpp/disco/items"
	"mellium.im/xmpp/form"
)

// ForIdentities implements info.IdentityIter.
//
// For the root node it yields the service identity, and for other nodes it
// yields a pubsub identity with the type reported by the backend.
func (s *Service) ForIdentities(node string, f func(info.Identity) error) error {
	if node == "" {
		category := s.Category
		if category == "" {
			category = "pubsub"
		}
		typ := s.Type
		if typ == "" {
			typ = "service"
		}
		return f(info.Identity{
			Category: category,
			Type:     typ,
			Name:     s.Name,
		})
	}
	nodeInfo, err := s.Backend.NodeInfo(context.Background(), node)
	if err != nil || nodeInfo.Type == "" {
		return err
	}
	return f(info.Identity{
		Category: "pubsub",
		Type:     nodeInfo.Type,
	})
}

// ForFeatures implements info.FeatureIter.
//
// The features configured on the service are advertised on the root node in
// their pubsub namespace form.
func (s *Service) ForFeatures(node string, f func(info.Feature) error) error {
	if node != "" {
		return nil
	}
	err := f(info.Feature{Var: disco.NSItems})
	if err != nil {
		return err
	}
	for _, feature := range s.Features {
		err = f(info.Feature{Var: NS + "#" + feature.String()})
		if err != nil {
			return err
		}
	}
	return nil
}

// ForForms implements form.Iter.
//
// Nodes for which the backend reports metadata get a meta-data form
// describing them.
func (s *Service) ForForms(node string, f func(*form.Data) error) error {
	if node == "" {
		return nil
	}
	nodeInfo, err := s.Backend.NodeInfo(context.Background(), node)
	if err != nil || nodeInfo.Type == "" || len(nodeInfo.Meta) == 0 {
		return err
	}
	fields := make([]form.Field, 0, len(nodeInfo.Meta)+3)
	fields = append(fields,
		form.Result,
		form.Hidden(formTypeField, form.Value(NSMeta)),
		form.Text(nodeTypeField, form.Value(nodeInfo.Type), form.Label("The type of node (collection or leaf)")),
	)
	fields = append(fields, nodeInfo.Meta...)
	return f(form.New(fields...))
}

// ForItems implements items.Iter.
//
// Unless the service is configured to hide them, the backends nodes are
// listed as items of the root node.
func (s *Service) ForItems(node string, f func(items.Item) error) error {
	if node != "" || s.HideNodes {
		return nil
	}
	nodes, err := s.Backend.Nodes(context.Background())
	if err != nil {
		return err
	}
	for _, name := range nodes {
		err = f(items.Item{
			JID:  s.JID,
			Node: name,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
