// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"encoding/xml"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/form"
	"mellium.im/xmpp/stanza"
)

var submissionTestCases = [...]struct {
	ns       string
	options  map[string][]string
	expected string
}{
	0: {
		ns:       NSOptions,
		expected: `<x xmlns="jabber:x:data" type="submit"><field var="FORM_TYPE" type="hidden"><value>http://jabber.org/protocol/pubsub#subscribe_options</value></field></x>`,
	},
	1: {
		ns: NSConfig,
		options: map[string][]string{
			"pubsub#title":                 {"Princely Musings"},
			"pubsub#deliver_notifications": {"true"},
		},
		expected: `<x xmlns="jabber:x:data" type="submit"><field var="FORM_TYPE" type="hidden"><value>http://jabber.org/protocol/pubsub#node_config</value></field><field var="pubsub#deliver_notifications"><value>true</value></field><field var="pubsub#title"><value>Princely Musings</value></field></x>`,
	},
	2: {
		ns: NSConfig,
		options: map[string][]string{
			"pubsub#children": {"salutations", "farewells"},
		},
		expected: `<x xmlns="jabber:x:data" type="submit"><field var="FORM_TYPE" type="hidden"><value>http://jabber.org/protocol/pubsub#node_config</value></field><field var="pubsub#children"><value>salutations</value><value>farewells</value></field></x>`,
	},
}

func TestSubmission(t *testing.T) {
	for i, tc := range submissionTestCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			var buf strings.Builder
			e := xml.NewEncoder(&buf)
			_, err := xmlstream.Copy(e, submission(tc.ns, tc.options))
			if err != nil {
				t.Fatalf("error encoding form: %v", err)
			}
			if err = e.Flush(); err != nil {
				t.Fatalf("error flushing encoder: %v", err)
			}
			if s := buf.String(); s != tc.expected {
				t.Errorf("wrong XML:\nwant=%s\n got=%s", tc.expected, s)
			}
		})
	}
}

var findFormTestCases = [...]struct {
	forms  []dataForm
	ns     string
	found  bool
	values map[string][]string
}{
	0: {
		forms: []dataForm{{
			Type: "submit",
			Fields: []dataField{
				{Var: formTypeField, Values: []string{NSConfig}},
				{Var: "pubsub#title", Values: []string{"Princely Musings"}},
			},
		}},
		ns:     NSConfig,
		found:  true,
		values: map[string][]string{"pubsub#title": {"Princely Musings"}},
	},
	1: {
		// Cancellations may omit the FORM_TYPE field entirely.
		forms:  []dataForm{{Type: "cancel"}},
		ns:     NSOptions,
		found:  true,
		values: map[string][]string{},
	},
	2: {
		forms: []dataForm{{
			Type: "submit",
			Fields: []dataField{
				{Var: formTypeField, Values: []string{NSOptions}},
			},
		}},
		ns:    NSConfig,
		found: false,
	},
	3: {
		forms: []dataForm{
			{
				Type: "submit",
				Fields: []dataField{
					{Var: formTypeField, Values: []string{"urn:example:other"}},
					{Var: "muc#roomconfig_roomname", Values: []string{"torture chamber"}},
				},
			},
			{
				Type: "submit",
				Fields: []dataField{
					{Var: formTypeField, Values: []string{NSOptions}},
					{Var: "pubsub#deliver", Values: []string{"false"}},
				},
			},
		},
		ns:     NSOptions,
		found:  true,
		values: map[string][]string{"pubsub#deliver": {"false"}},
	},
}

func TestFindForm(t *testing.T) {
	for i, tc := range findFormTestCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			f, ok := findForm(tc.forms, tc.ns)
			if ok != tc.found {
				t.Fatalf("wrong result: want=%t, got=%t", tc.found, ok)
			}
			if !ok {
				return
			}
			if vals := f.values(); !reflect.DeepEqual(vals, tc.values) {
				t.Errorf("wrong values:\nwant=\n%+v,\ngot=\n%+v", tc.values, vals)
			}
		})
	}
}

var checkFormTestCases = [...]struct {
	options map[string][]string
	checked map[string][]string
	text    string
}{
	0: {
		options: map[string][]string{
			"pubsub#deliver": {"true"},
			"pubsub#title":   {"Princely Musings"},
		},
		checked: map[string][]string{
			"pubsub#deliver": {"true"},
			"pubsub#title":   {"Princely Musings"},
		},
	},
	1: {
		options: map[string][]string{"pubsub#deliver": {"bogus"}},
		text:    "invalid value for field pubsub#deliver",
	},
	2: {
		options: map[string][]string{"pubsub#deliver": {"true", "false"}},
		text:    "too many values for field pubsub#deliver",
	},
	3: {
		options: map[string][]string{"pubsub#publisher": {"@example.net/"}},
		text:    "invalid value for field pubsub#publisher",
	},
	4: {
		options: map[string][]string{"pubsub#publisher": {"hamlet@denmark.lit", "ophelia@denmark.lit"}},
		text:    "too many values for field pubsub#publisher",
	},
	5: {
		options: map[string][]string{"pubsub#contact": {"hamlet@denmark.lit", "ophelia@denmark.lit"}},
		checked: map[string][]string{"pubsub#contact": {"hamlet@denmark.lit", "ophelia@denmark.lit"}},
	},
	6: {
		options: map[string][]string{"pubsub#contact": {"hamlet@denmark.lit", "@example.net/"}},
		text:    "invalid value for field pubsub#contact",
	},
	7: {
		options: map[string][]string{"pubsub#description": {"First line.", "Second line."}},
		checked: map[string][]string{"pubsub#description": {"First line.", "Second line."}},
	},
	8: {
		// Fields that do not appear in the schema are dropped.
		options: map[string][]string{
			"pubsub#bogus": {"x"},
			"pubsub#title": {"Princely Musings"},
		},
		checked: map[string][]string{"pubsub#title": {"Princely Musings"}},
	},
	9: {
		options: map[string][]string{"pubsub#title": {"one", "two"}},
		text:    "too many values for field pubsub#title",
	},
	10: {
		// Submissions sometimes echo back fixed fields, which have no var
		// attribute and carry no data.
		options: map[string][]string{
			"":             {"Node Configuration"},
			"pubsub#title": {"Princely Musings"},
		},
		checked: map[string][]string{"pubsub#title": {"Princely Musings"}},
	},
}

func TestCheckForm(t *testing.T) {
	schema := form.New(
		form.Fixed(form.Value("Node Configuration")),
		form.Boolean("pubsub#deliver"),
		form.JID("pubsub#publisher"),
		form.JIDMulti("pubsub#contact"),
		form.TextMulti("pubsub#description"),
		form.Text("pubsub#title"),
	)
	for i, tc := range checkFormTestCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			checked, err := checkForm(schema, tc.options)
			if tc.text != "" {
				var formErr Error
				if !errors.As(err, &formErr) {
					t.Fatalf("expected form error, got %v", err)
				}
				if formErr.Text != tc.text {
					t.Errorf("wrong error text: want=%q, got=%q", tc.text, formErr.Text)
				}
				if formErr.StanzaCondition != stanza.BadRequest {
					t.Errorf("wrong condition: want=%v, got=%v", stanza.BadRequest, formErr.StanzaCondition)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(checked, tc.checked) {
				t.Errorf("wrong options:\nwant=\n%+v,\ngot=\n%+v", tc.checked, checked)
			}
		})
	}
}

func TestCheckFormNilSchema(t *testing.T) {
	checked, err := checkForm(nil, map[string][]string{"pubsub#title": {"x"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(checked) != 0 {
		t.Errorf("expected no options, got %+v", checked)
	}
}
