package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("decoded %d members")
	if got != "decoded %d members" {
		t.Errorf("custom logger saw %q", got)
	}

	// nil installs a no-op, not a nil func
	SetLogger(nil)
	if Logf == nil {
		t.Fatal("Logf is nil after SetLogger(nil)")
	}
	Logf("must not panic")
}

func TestDefaultLogger(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should default to a working logger")
	}
}
