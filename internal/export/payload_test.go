package export

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEncodePayload_Fields(t *testing.T) {
	data, err := EncodePayload(PayloadOf(testItem("neon_vault")))
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"schemaVersion", "missionId", "digest", "seedVersion", "timestamp", "modules", "contributorId", "heat", "performanceScore", "tier"} {
		if _, ok := m[k]; !ok {
			t.Errorf("missing field %q", k)
		}
	}
	if _, ok := m["signature"]; ok {
		t.Error("expected empty signature omitted")
	}
	if m["timestamp"].(float64) != 1000 {
		t.Errorf("expected timestamp 1000, got %v", m["timestamp"])
	}
}

func TestEncodePayload_NilModulesIsArray(t *testing.T) {
	it := testItem("m1")
	it.Modules = nil
	data, err := EncodePayload(PayloadOf(it))
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	if !strings.Contains(string(data), `"modules":[]`) {
		t.Errorf("expected empty modules array, got %s", data)
	}
}

func TestValidatePayload_Rejects(t *testing.T) {
	good := PayloadOf(testItem("m1"))
	cases := map[string]func(p *Payload){
		"empty mission": func(p *Payload) { p.MissionID = "" },
		"short digest":  func(p *Payload) { p.Digest = "abc" },
		"score > 1":     func(p *Payload) { p.PerformanceScore = 1.5 },
		"negative heat": func(p *Payload) { p.Heat = -1 },
		"no tier":       func(p *Payload) { p.Tier = "" },
		"wrong version": func(p *Payload) { p.SchemaVersion = "v0" },
	}
	for name, mutate := range cases {
		p := good
		p.Modules = append([]string{}, good.Modules...)
		mutate(&p)
		if _, err := EncodePayload(p); err == nil {
			t.Errorf("%s: expected rejection", name)
		}
	}
}

func TestValidatePayload_UnknownField(t *testing.T) {
	data, _ := json.Marshal(PayloadOf(testItem("m1")))
	data = []byte(strings.Replace(string(data), "{", `{"extra":1,`, 1))
	if err := ValidatePayload(data); err == nil {
		t.Error("expected unknown field rejected")
	}
}

func TestDecodePayload_Roundtrip(t *testing.T) {
	it := testItem("m1")
	it.Signature = "sig"
	data, err := EncodePayload(PayloadOf(it))
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	p, err := DecodePayload(data)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	back := p.Item("id-1")
	if back.ID != "id-1" || back.MissionID != "m1" || back.Signature != "sig" || len(back.Modules) != 2 {
		t.Errorf("unexpected item %+v", back)
	}
}
