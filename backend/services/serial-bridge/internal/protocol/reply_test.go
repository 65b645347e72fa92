package protocol

import "testing"

func boolPtr(v bool) *bool { return &v }

func TestEncodeFlagsReply(t *testing.T) {
	r := FlagsReply(3, boolPtr(true), boolPtr(false), boolPtr(true))
	if got := string(EncodeReply(r)); got != "pressure:True,temperature:False,humidity:True\n" {
		t.Fatalf("unexpected encoding %q", got)
	}
}

func TestEncodeFlagsReplyWithUnsetFlags(t *testing.T) {
	r := FlagsReply(5, nil, nil, boolPtr(false))
	if got := r.String(); got != "pressure:None,temperature:None,humidity:False" {
		t.Fatalf("unexpected rendering %q", got)
	}
}

func TestEncodeNoMatchReply(t *testing.T) {
	if got := string(EncodeReply(NoMatchReply(999))); got != "Error: no match for card 999 in the database.\n" {
		t.Fatalf("unexpected encoding %q", got)
	}
}

func TestEncodeLineSingleTerminator(t *testing.T) {
	cases := map[string]string{
		"":          "\n",
		"GET:1":     "GET:1\n",
		"GET:1\r\n": "GET:1\n",
		"a\nb":      "ab\n",
	}
	for in, want := range cases {
		if got := string(EncodeLine(in)); got != want {
			t.Errorf("EncodeLine(%q) = %q, want %q", in, got, want)
		}
	}
}
