// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"encoding/xml"
	"sort"
	"strconv"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/form"
	"mellium.im/xmpp/jid"
)

// formTypeField is the hidden field that scopes a data form to a namespace.
const formTypeField = "FORM_TYPE"

// dataForm is a data form as it appears in pubsub requests.
// The type attribute and FORM_TYPE field are needed to pick the right form
// out of a request, so forms are decoded into this intermediate
// representation before their values are extracted.
type dataForm struct {
	XMLName xml.Name    `xml:"jabber:x:data x"`
	Type    string      `xml:"type,attr"`
	Fields  []dataField `xml:"field"`
}

type dataField struct {
	Var    string   `xml:"var,attr"`
	Values []string `xml:"value"`
}

// formNamespace returns the value of the forms FORM_TYPE field, if any.
func (f dataForm) formNamespace() string {
	for _, field := range f.Fields {
		if field.Var == formTypeField && len(field.Values) > 0 {
			return field.Values[0]
		}
	}
	return ""
}

// values returns a mapping from field name to raw values, excluding the
// FORM_TYPE field.
func (f dataForm) values() map[string][]string {
	m := make(map[string][]string)
	for _, field := range f.Fields {
		if field.Var == formTypeField {
			continue
		}
		m[field.Var] = field.Values
	}
	return m
}

// findForm returns the first form scoped to the provided namespace.
// Cancellations that omit the FORM_TYPE field also match.
func findForm(forms []dataForm, typeNS string) (dataForm, bool) {
	for _, f := range forms {
		if f.formNamespace() == typeNS || (f.Type == "cancel" && f.formNamespace() == "") {
			return f, true
		}
	}
	return dataForm{}, false
}

// submission builds a submitted data form scoped to the provided namespace
// from a mapping of raw field values.
// Fields are rendered in lexical order so that output is deterministic.
func submission(typeNS string, options map[string][]string) xml.TokenReader {
	fields := make([]xml.TokenReader, 0, len(options)+1)
	fields = append(fields, fieldElement(formTypeField, "hidden", []string{typeNS}))
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fields = append(fields, fieldElement(name, "", options[name]))
	}
	return xmlstream.Wrap(
		xmlstream.MultiReader(fields...),
		xml.StartElement{
			Name: xml.Name{Space: form.NS, Local: "x"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "type"}, Value: "submit"}},
		},
	)
}

func fieldElement(name, typ string, values []string) xml.TokenReader {
	attrs := []xml.Attr{{Name: xml.Name{Local: "var"}, Value: name}}
	if typ != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "type"}, Value: typ})
	}
	vals := make([]xml.TokenReader, 0, len(values))
	for _, v := range values {
		vals = append(vals, xmlstream.Wrap(
			xmlstream.Token(xml.CharData(v)),
			xml.StartElement{Name: xml.Name{Local: "value"}},
		))
	}
	return xmlstream.Wrap(
		xmlstream.MultiReader(vals...),
		xml.StartElement{Name: xml.Name{Local: "field"}, Attr: attrs},
	)
}

// checkForm validates raw submitted values against the declared field types
// of schema and returns a mapping containing only the fields that appear in
// the schema.
// The schema itself is never modified.
func checkForm(schema *form.Data, options map[string][]string) (map[string][]string, error) {
	checked := make(map[string][]string)
	if schema == nil {
		return checked, nil
	}
	var formErr error
	schema.ForFields(func(field form.FieldData) {
		if formErr != nil {
			return
		}
		values, ok := options[field.Var]
		if !ok {
			return
		}
		switch field.Type {
		case form.TypeBoolean:
			if len(values) > 1 {
				formErr = BadRequest(CondNone, "too many values for field "+field.Var)
				return
			}
			for _, v := range values {
				if _, err := strconv.ParseBool(v); err != nil {
					formErr = BadRequest(CondNone, "invalid value for field "+field.Var)
					return
				}
			}
		case form.TypeJID:
			if len(values) > 1 {
				formErr = BadRequest(CondNone, "too many values for field "+field.Var)
				return
			}
			fallthrough
		case form.TypeJIDMulti:
			for _, v := range values {
				if _, err := jid.Parse(v); err != nil {
					formErr = BadRequest(CondNone, "invalid value for field "+field.Var)
					return
				}
			}
		case form.TypeFixed:
			// Fixed fields carry no data.
			return
		case form.TypeListMulti, form.TypeTextMulti:
		default:
			if len(values) > 1 {
				formErr = BadRequest(CondNone, "too many values for field "+field.Var)
				return
			}
		}
		checked[field.Var] = values
	})
	if formErr != nil {
		return nil, formErr
	}
	return checked, nil
}
