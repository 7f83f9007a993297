package status

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type BufferStatus string

const (
	BufferFree    BufferStatus = "Free"
	BufferInUse   BufferStatus = "InUse"
	BufferEvicted BufferStatus = "Evicted"
)

// String 返回缓冲区状态文本。
func (s BufferStatus) String() string { return string(s) }

// MarshalJSON 将 BufferStatus 编码为 JSON 字符串。
func (s BufferStatus) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }

// Policy 是缓冲池的独立开关名称，彼此不互斥。
type Policy string

const (
	// PolicyZeroBuffer 新分配（非复用）的缓冲区在首次交付前清零。
	PolicyZeroBuffer Policy = "ZeroBuffer"
	// PolicyDropOld 启用按空闲时长的回收。
	PolicyDropOld Policy = "DropOld"
)

// Policies 按位序列出全部策略。
var Policies = []Policy{PolicyZeroBuffer, PolicyDropOld}

// String 返回策略名称。
func (p Policy) String() string { return string(p) }

// Bit 返回策略在位图中的序号；未知策略返回 -1。
func (p Policy) Bit() int {
	for i, v := range Policies {
		if v == p {
			return i
		}
	}
	return -1
}

// ParsePolicy 将文本解析为 Policy（大小写不敏感，容忍 zero_buffer/drop_old 写法）。
// 参数：
// - v: 策略文本
// 返回：
// - Policy: 解析结果
// - error: 未知策略时返回错误
func ParsePolicy(v string) (Policy, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(v), "_", ""))
	for _, p := range Policies {
		if strings.ToLower(string(p)) == key {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown Policy: %q", v)
}

// MarshalJSON 将 Policy 编码为 JSON 字符串。
func (p Policy) MarshalJSON() ([]byte, error) { return json.Marshal(string(p)) }

// UnmarshalJSON 从 JSON 字符串解码为 Policy。
func (p *Policy) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := ParsePolicy(v)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// UnmarshalYAML 从 YAML 标量解码为 Policy。
func (p *Policy) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParsePolicy(value.Value)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
