// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpptest_test

import (
	"bytes"
	"testing"

	"mellium.im/pubsub/internal/xmpptest"
	"mellium.im/xmpp"
)

func TestNewClientSession(t *testing.T) {
	state := xmpp.Secure | xmpp.InputStreamClosed
	buf := new(bytes.Buffer)
	s := xmpptest.NewClientSession(state, buf)

	if mask := s.State(); mask != state|xmpp.Ready {
		t.Errorf("got invalid state value: want=%d, got=%d", state|xmpp.Ready, mask)
	}

	if out := buf.String(); out != "" {
		t.Errorf("buffer wrote unexpected tokens: `%s'", out)
	}
}
