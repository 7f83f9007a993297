package status

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

// TestBufferStatusJSON 验证 BufferStatus 编码为纯文本 JSON 字符串。
func TestBufferStatusJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		S BufferStatus `json:"s"`
	}{BufferEvicted})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"s":"Evicted"}` {
		t.Fatalf("json=%s", b)
	}
	if BufferFree.String() != "Free" {
		t.Fatalf("String=%s", BufferFree.String())
	}
}

// TestPolicyParse 验证策略名称的宽松解析、位序与 JSON/YAML 解码。
func TestPolicyParse(t *testing.T) {
	cases := map[string]Policy{
		"ZeroBuffer":  PolicyZeroBuffer,
		"zero_buffer": PolicyZeroBuffer,
		" dropold ":   PolicyDropOld,
		"DROP_OLD":    PolicyDropOld,
	}
	for in, want := range cases {
		got, err := ParsePolicy(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: got=%s want=%s", in, got, want)
		}
	}
	if _, err := ParsePolicy("compact"); err == nil {
		t.Fatalf("expected error")
	}

	if PolicyZeroBuffer.Bit() != 0 || PolicyDropOld.Bit() != 1 {
		t.Fatalf("unexpected bit order")
	}
	if Policy("X").Bit() != -1 {
		t.Fatalf("expected -1 for unknown policy")
	}

	var p Policy
	if err := json.Unmarshal([]byte(`"drop_old"`), &p); err != nil {
		t.Fatal(err)
	}
	if p != PolicyDropOld {
		t.Fatalf("p=%s", p)
	}
	if err := json.Unmarshal([]byte(`1`), &p); err == nil {
		t.Fatalf("expected unmarshal error")
	}

	var cfg struct {
		Policies []Policy `yaml:"policies"`
	}
	if err := yaml.Unmarshal([]byte("policies: [zero_buffer, DropOld]\n"), &cfg); err != nil {
		t.Fatal(err)
	}
	if len(cfg.Policies) != 2 || cfg.Policies[1] != PolicyDropOld {
		t.Fatalf("policies=%v", cfg.Policies)
	}
	if err := yaml.Unmarshal([]byte("policies: [nope]\n"), &cfg); err == nil {
		t.Fatalf("expected yaml error")
	}
}
