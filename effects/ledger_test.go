package effects

import "testing"

func TestLedger_Transitions(t *testing.T) {
	var l ledger

	if d := l.local("1"); !d.write || d.data != "1" {
		t.Fatalf("first local change must be written: %+v", d)
	}

	if d := l.local("1"); d.write {
		t.Fatalf("unchanged encoding written again")
	}

	l.remote("2")

	if d := l.local("2"); d.write {
		t.Fatalf("host value echoed back")
	}

	if d := l.local("3"); !d.write {
		t.Fatalf("changed encoding not written")
	}

	l.failed("1") // stale, ignored

	if d := l.local("3"); d.write {
		t.Fatalf("stale failure reset the ledger")
	}

	l.failed("3")

	if d := l.local("3"); !d.write {
		t.Fatalf("failed write not retried on next change")
	}
}

func TestCoerce(t *testing.T) {
	type pt struct {
		X int `json:"x"`
	}

	if v, ok := Coerce[pt](map[string]any{"x": float64(4)}); !ok || v.X != 4 {
		t.Fatalf("v=%+v ok=%v", v, ok)
	}

	if _, ok := Coerce[int]("4"); ok {
		t.Fatalf("string coerced to int")
	}

	if _, ok := Coerce[string](nil); ok {
		t.Fatalf("nil coerced")
	}

	if v, ok := Coerce[string]("s"); !ok || v != "s" {
		t.Fatalf("pass-through failed")
	}
}

func TestCoerce_RejectsWrongShapedObjects(t *testing.T) {
	type prefs struct {
		Volume int    `json:"volume"`
		Theme  string `json:"theme"`
		Note   string `json:"note,omitempty"`
	}

	cases := []struct {
		name string
		in   any
		ok   bool
	}{
		{"complete", map[string]any{"volume": float64(3), "theme": "dark"}, true},
		{"optional field present", map[string]any{"volume": float64(3), "theme": "dark", "note": "n"}, true},
		{"case-insensitive keys", map[string]any{"Volume": float64(3), "THEME": "dark"}, true},
		{"unknown key only", map[string]any{"bogus": true}, false},
		{"unknown key added", map[string]any{"volume": float64(3), "theme": "dark", "extra": 1}, false},
		{"missing field", map[string]any{"volume": float64(3)}, false},
		{"empty object", map[string]any{}, false},
		{"wrong field type", map[string]any{"volume": "loud", "theme": "dark"}, false},
		{"array", []any{float64(1)}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, ok := Coerce[prefs](tc.in)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v (v=%+v)", ok, tc.ok, v)
			}

			if !ok && v != (prefs{}) {
				t.Fatalf("rejected value not zero: %+v", v)
			}
		})
	}

	if v, ok := Coerce[*prefs](map[string]any{"volume": float64(1), "theme": "x"}); !ok || v.Volume != 1 {
		t.Fatalf("pointer target: v=%+v ok=%v", v, ok)
	}

	if _, ok := Coerce[*prefs](map[string]any{"volume": float64(1)}); ok {
		t.Fatalf("pointer target accepted a missing field")
	}
}

func TestJSONCodec(t *testing.T) {
	c := JSONCodec{}

	enc, err := c.Encode(map[string]any{"b": 1, "a": 2})
	if err != nil || enc != `{"a":2,"b":1}` {
		t.Fatalf("enc=%s err=%v", enc, err)
	}

	if _, err := c.Decode("{"); err == nil {
		t.Fatalf("expected decode error")
	}

	if _, err := c.Encode(func() {}); err == nil {
		t.Fatalf("expected encode error")
	}
}
