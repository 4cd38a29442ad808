// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"encoding/xml"
	"errors"

	"golang.org/x/text/language"
	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

const (
	nsStanzas = "urn:ietf:params:xml:ns:xmpp-stanzas"
	nsXML     = "http://www.w3.org/XML/1998/namespace"
)

var (
	// ErrPending is returned by Subscribe when the service has received the
	// subscription request but requires approval from a node owner before it
	// becomes active.
	ErrPending = errors.New("pubsub: subscription pending approval")

	// ErrUnconfigured is returned by Subscribe when the service requires the
	// subscription to be configured before it becomes active.
	ErrUnconfigured = errors.New("pubsub: subscription must be configured")
)

// Error is a pubsub error response comprising a stanza error condition and,
// optionally, a more specific pubsub condition.
// It is intended to be marshalable and unmarshalable as XML.
type Error struct {
	By              jid.JID
	Type            stanza.ErrorType
	StanzaCondition stanza.Condition
	Condition       Condition

	// Feature is the pubsub feature that was reported as unsupported.
	// It is only marshaled when Condition is CondUnsupported.
	Feature Feature

	Lang language.Tag
	Text string
}

// BadRequest returns an error indicating that the request was malformed and
// may be retried after changing it, with cond naming the specific problem.
func BadRequest(cond Condition, text string) Error {
	return Error{
		Type:            stanza.Modify,
		StanzaCondition: stanza.BadRequest,
		Condition:       cond,
		Text:            text,
	}
}

// Unsupported returns an error indicating that the service does not implement
// the named pubsub feature.
func Unsupported(f Feature) Error {
	return Error{
		Type:            stanza.Cancel,
		StanzaCondition: stanza.FeatureNotImplemented,
		Condition:       CondUnsupported,
		Feature:         f,
	}
}

// Error satisfies the error interface by returning the conditions and text.
func (e Error) Error() string {
	s := string(e.StanzaCondition)
	if e.Condition != CondNone {
		if s != "" {
			s += ": "
		}
		s += e.Condition.String()
		if e.Condition == CondUnsupported {
			s += " (" + e.Feature.String() + ")"
		}
	}
	if e.Text != "" {
		s += ": " + e.Text
	}
	return s
}

// Is enables the use of this error with errors.Is.
// Zero valued fields of the target are treated as wildcards and the Feature
// and Text fields are never compared.
func (e Error) Is(target error) bool {
	te, ok := target.(Error)
	if !ok {
		return false
	}
	return (string(te.Type) == "" || te.Type == e.Type) &&
		(string(te.StanzaCondition) == "" || te.StanzaCondition == e.StanzaCondition) &&
		(te.Condition == CondNone || te.Condition == e.Condition)
}

// TokenReader satisfies the xmlstream.Marshaler interface for Error.
func (e Error) TokenReader() xml.TokenReader {
	start := xml.StartElement{
		Name: xml.Name{Local: "error"},
	}
	if string(e.Type) != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(e.Type)})
	}
	a, err := e.By.MarshalXMLAttr(xml.Name{Local: "by"})
	if err == nil && a.Value != "" {
		start.Attr = append(start.Attr, a)
	}

	inner := make([]xml.TokenReader, 0, 3)
	if string(e.StanzaCondition) != "" {
		inner = append(inner, xmlstream.Wrap(nil, xml.StartElement{
			Name: xml.Name{Space: nsStanzas, Local: string(e.StanzaCondition)},
		}))
	}
	if e.Condition != CondNone {
		condStart := xml.StartElement{
			Name: xml.Name{Space: NSErrors, Local: e.Condition.String()},
		}
		if e.Condition == CondUnsupported {
			condStart.Attr = append(condStart.Attr, xml.Attr{
				Name:  xml.Name{Local: "feature"},
				Value: e.Feature.String(),
			})
		}
		inner = append(inner, xmlstream.Wrap(nil, condStart))
	}
	if e.Text != "" {
		var attrs []xml.Attr
		// xml:lang attribute is optional, don't include it if it's empty.
		if e.Lang != language.Und {
			attrs = []xml.Attr{{
				Name:  xml.Name{Space: nsXML, Local: "lang"},
				Value: e.Lang.String(),
			}}
		}
		inner = append(inner, xmlstream.Wrap(
			xmlstream.Token(xml.CharData(e.Text)),
			xml.StartElement{
				Name: xml.Name{Space: nsStanzas, Local: "text"},
				Attr: attrs,
			},
		))
	}

	return xmlstream.Wrap(xmlstream.MultiReader(inner...), start)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (e Error) WriteXML(w xmlstream.TokenWriter) (n int, err error) {
	return xmlstream.Copy(w, e.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface for Error.
func (e Error) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	_, err := e.WriteXML(enc)
	return err
}

// UnmarshalXML satisfies the xml.Unmarshaler interface for Error. If multiple
// text elements are present in the XML and the Error struct already has a
// language tag set, UnmarshalXML selects the text element with an xml:lang
// attribute that most closely matches the tag.
func (e *Error) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	decoded := struct {
		Type       stanza.ErrorType `xml:"type,attr"`
		By         jid.JID          `xml:"by,attr"`
		Conditions []struct {
			XMLName xml.Name
			Feature string `xml:"feature,attr"`
		} `xml:",any"`
		Text []struct {
			Lang string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
			Data string `xml:",chardata"`
		} `xml:"urn:ietf:params:xml:ns:xmpp-stanzas text"`
	}{}
	if err := d.DecodeElement(&decoded, &start); err != nil {
		return err
	}
	e.Type = decoded.Type
	e.By = decoded.By
	for _, cond := range decoded.Conditions {
		switch cond.XMLName.Space {
		case nsStanzas:
			e.StanzaCondition = stanza.Condition(cond.XMLName.Local)
		case NSErrors:
			for c := CondNone; c <= CondUnsupportedAccessModel; c++ {
				if c.String() == cond.XMLName.Local {
					e.Condition = c
					break
				}
			}
			if e.Condition == CondUnsupported {
				for f := FeatureAccessAuthorize; f <= FeatureSubscriptionNotifications; f++ {
					if f.String() == cond.Feature {
						e.Feature = f
						break
					}
				}
			}
		}
	}

	tags := make([]language.Tag, 0, len(decoded.Text))
	data := make(map[language.Tag]string)
	for _, text := range decoded.Text {
		// Parse the language tag, skipping any that cannot be parsed.
		// A missing tag is mapped to the undetermined language.
		tag, err := language.Parse(text.Lang)
		if err != nil && text.Lang != "" {
			continue
		}
		tags = append(tags, tag)
		data[tag] = text.Data
	}
	tag, _, _ := language.NewMatcher(tags).Match(e.Lang)
	e.Lang = tag
	e.Text = data[tag]
	return nil
}
