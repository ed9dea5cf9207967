package loadgen

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadPrompts reads a JSONL prompt set. Blank lines are skipped; missing
// max_tokens and temperature fall back to the service defaults.
func LoadPrompts(path string) ([]Prompt, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts %s: %w", path, err)
	}
	return ParsePrompts(raw)
}

func ParsePrompts(raw []byte) ([]Prompt, error) {
	type line struct {
		Prompt      string   `json:"prompt"`
		MaxTokens   *int     `json:"max_tokens"`
		Temperature *float64 `json:"temperature"`
	}

	var out []Prompt
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var l line
		if err := json.Unmarshal([]byte(text), &l); err != nil {
			return nil, fmt.Errorf("%w: prompts line %d: %v", ErrConfig, n, err)
		}
		if strings.TrimSpace(l.Prompt) == "" {
			return nil, fmt.Errorf("%w: prompts line %d: prompt is empty", ErrConfig, n)
		}
		p := Prompt{Prompt: l.Prompt, MaxTokens: DefaultMaxTokens, Temperature: DefaultTemperature}
		if l.MaxTokens != nil {
			p.MaxTokens = *l.MaxTokens
		}
		if l.Temperature != nil {
			p.Temperature = *l.Temperature
		}
		out = append(out, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan prompts: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: prompt set is empty", ErrConfig)
	}
	return out, nil
}
