// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package shim implements stanza headers and internet metadata (XEP-0131).
package shim

import (
	"encoding/xml"

	"mellium.im/xmlstream"
)

// NS is the namespace used by this package, provided as a convenience.
const NS = "http://jabber.org/protocol/shim"

// Header is a single stanza header.
type Header struct {
	XMLName xml.Name `xml:"http://jabber.org/protocol/shim header"`
	Name    string   `xml:"name,attr"`
	Value   string   `xml:",chardata"`
}

// TokenReader implements xmlstream.Marshaler.
func (h Header) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(
		xmlstream.Token(xml.CharData(h.Value)),
		xml.StartElement{
			Name: xml.Name{Space: NS, Local: "header"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "name"}, Value: h.Name}},
		},
	)
}

// WriteXML implements xmlstream.WriterTo.
func (h Header) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, h.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (h Header) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := h.WriteXML(e)
	return err
}

// Wrap wraps the ordered list of headers in a headers element.
func Wrap(headers ...Header) xml.TokenReader {
	inner := make([]xml.TokenReader, 0, len(headers))
	for _, h := range headers {
		inner = append(inner, h.TokenReader())
	}
	return xmlstream.Wrap(
		xmlstream.MultiReader(inner...),
		xml.StartElement{Name: xml.Name{Space: NS, Local: "headers"}},
	)
}

// Map collects headers into a mapping from header name to values.
// The order of values of a repeated header is preserved.
// If no headers are present the returned map is nil.
func Map(headers []Header) map[string][]string {
	if len(headers) == 0 {
		return nil
	}
	m := make(map[string][]string, len(headers))
	for _, h := range headers {
		m[h.Name] = append(m[h.Name], h.Value)
	}
	return m
}
