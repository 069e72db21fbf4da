package config

import (
	"reflect"
	"testing"
)

func TestFromEnv(t *testing.T) {
	env := map[string]string{
		"MODELHOST_ADDR":             ":9000",
		"MODELHOST_LOAD_MODELS":      "t5-small, sst2,",
		"MODELHOST_MAX_QUEUE_DEPTH":  "4",
		"MODELHOST_MAX_BODY_BYTES":   "nope",
		"MODELHOST_CORS_ENABLED":     "true",
		"MODELHOST_MODEL_REPOSITORY": " /srv/models ",
	}
	c := FromEnv(func(k string) string { return env[k] })
	if c.Addr != ":9000" || c.MaxQueueDepth != 4 || !c.CORSEnabled || c.ModelRepository != "/srv/models" {
		t.Fatalf("unexpected %+v", c)
	}
	if !reflect.DeepEqual(c.LoadModels, []string{"t5-small", "sst2"}) {
		t.Fatalf("load models %v", c.LoadModels)
	}
	if c.MaxBodyBytes != 0 {
		t.Fatalf("unparsable value should stay zero, got %d", c.MaxBodyBytes)
	}
}

func TestMergeSkipsZero(t *testing.T) {
	c := Default()
	c.Merge(Config{Addr: ":1", MaxWaitSeconds: 5})
	if c.Addr != ":1" || c.MaxWaitSeconds != 5 {
		t.Fatalf("override not applied: %+v", c)
	}
	if c.MaxQueueDepth != 32 || c.LogLevel != "info" {
		t.Fatalf("defaults lost: %+v", c)
	}
}

func TestSplitList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		if got := SplitList(c.in); !reflect.DeepEqual(got, c.want) {
			t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
		}
	}
}
