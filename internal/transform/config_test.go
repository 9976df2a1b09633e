package transform

import "testing"

func TestConfig_InitializeKeepsPreviousOnEmpty(t *testing.T) {
	c := NewConfig()
	if c.Prefix() != "" {
		t.Fatalf("want empty prefix, got %q", c.Prefix())
	}
	if !c.Initialize("linklab.") {
		t.Fatal("Initialize reported failure")
	}
	if !c.Initialize("") {
		t.Fatal("Initialize reported failure on empty info")
	}
	if got := c.Prefix(); got != "linklab." {
		t.Fatalf("want prefix kept, got %q", got)
	}
	c.Initialize("other.")
	if got := c.Prefix(); got != "other." {
		t.Fatalf("want prefix replaced, got %q", got)
	}
}

func TestEngine_PrefixDoesNotAffectOutput(t *testing.T) {
	plain := NewEngine(nil)
	prefixed := NewEngine(nil)
	prefixed.Initialize("tenant-a.")

	a, err := plain.Transform("p", "t", scenarioIn)
	if err != nil {
		t.Fatalf("plain: %v", err)
	}
	b, err := prefixed.Transform("p", "t", scenarioIn)
	if err != nil {
		t.Fatalf("prefixed: %v", err)
	}
	if a != b {
		t.Fatalf("prefix changed output:\n%s\n%s", a, b)
	}
	if prefixed.Config().Prefix() != "tenant-a." {
		t.Fatalf("unexpected prefix %q", prefixed.Config().Prefix())
	}
}
