package security

import "testing"

func TestFlag(t *testing.T) {
	t.Parallel()

	yes, no := true, false
	cases := []struct {
		in   any
		want *bool
	}{
		{nil, nil},
		{true, &yes},
		{false, &no},
		{"true", &yes},
		{" Yes ", &yes},
		{"0", &no},
		{"no", &no},
		{"maybe", nil},
		{float64(1), &yes},
		{float64(0), &no},
		{float64(2), nil},
		{[]string{"x"}, nil},
	}

	for _, tc := range cases {
		got := Flag(tc.in)
		switch {
		case tc.want == nil && got != nil:
			t.Fatalf("Flag(%#v)=%v want unknown", tc.in, *got)
		case tc.want != nil && got == nil:
			t.Fatalf("Flag(%#v)=unknown want %v", tc.in, *tc.want)
		case tc.want != nil && *got != *tc.want:
			t.Fatalf("Flag(%#v)=%v want %v", tc.in, *got, *tc.want)
		}
	}
}

func TestInfer_MissingFlagsStayUnknown(t *testing.T) {
	t.Parallel()

	s := Infer(map[string]any{"proxy": false})
	if s.IsProxy == nil || *s.IsProxy {
		t.Fatalf("proxy=%v", s.IsProxy)
	}
	if s.IsMobile != nil || s.IsHosting != nil {
		t.Fatalf("mobile=%v hosting=%v", s.IsMobile, s.IsHosting)
	}

	empty := Infer(nil)
	if empty.IsMobile != nil || empty.IsProxy != nil || empty.IsHosting != nil {
		t.Fatalf("nil flags produced %+v", empty)
	}
}
