// Package preset provides the built-in response-style presets and helpers
// for user-defined ones: key generation, merging, JSON import/export and
// matching the current parameters against known presets.
package preset

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"ggufchat/pkg/types"
)

// CustomKey is the pseudo preset reported when no preset matches.
const CustomKey = "custom"

var builtins = map[string]types.Preset{
	"balanced": {
		Name:        "Balanced",
		Description: "A good balance between creativity and coherence",
		Parameters:  types.GenerationParams{Temperature: 0.7, TopP: 0.95, TopK: 40, RepeatPenalty: 1.1, MaxTokens: 512},
	},
	"creative": {
		Name:        "Creative",
		Description: "More varied and imaginative responses",
		Parameters:  types.GenerationParams{Temperature: 1.0, TopP: 0.9, TopK: 60, RepeatPenalty: 1.05, MaxTokens: 512, PresencePenalty: 0.1},
	},
	"precise": {
		Name:        "Precise",
		Description: "More deterministic and focused responses",
		Parameters:  types.GenerationParams{Temperature: 0.3, TopP: 0.85, TopK: 20, RepeatPenalty: 1.2, MaxTokens: 512, FrequencyPenalty: 0.1},
	},
	"verbose": {
		Name:        "Verbose",
		Description: "Longer, more detailed responses",
		Parameters:  types.GenerationParams{Temperature: 0.8, TopP: 0.95, TopK: 50, RepeatPenalty: 1.0, MaxTokens: 1024},
	},
	"concise": {
		Name:        "Concise",
		Description: "Shorter, more to-the-point responses",
		Parameters:  types.GenerationParams{Temperature: 0.4, TopP: 0.9, TopK: 30, RepeatPenalty: 1.15, MaxTokens: 256, FrequencyPenalty: 0.1},
	},
	"factual": {
		Name:        "Factual",
		Description: "More likely to stick to known facts",
		Parameters:  types.GenerationParams{Temperature: 0.1, TopP: 0.7, TopK: 10, RepeatPenalty: 1.3, MaxTokens: 512, FrequencyPenalty: 0.2},
	},
}

var builtinOrder = []string{"balanced", "creative", "precise", "verbose", "concise", "factual"}

// Builtins returns a copy of the built-in presets.
func Builtins() map[string]types.Preset {
	return maps.Clone(builtins)
}

// IsBuiltin reports whether key names a built-in preset (or CustomKey).
func IsBuiltin(key string) bool {
	_, ok := builtins[key]
	return ok || key == CustomKey
}

// All merges user presets after the built-ins. User entries never replace a
// built-in key.
func All(user map[string]types.Preset) map[string]types.Preset {
	out := Builtins()
	for k, v := range user {
		if IsBuiltin(k) {
			continue
		}
		out[k] = v
	}
	return out
}

// Keys returns the built-in keys in display order followed by sorted user keys.
func Keys(user map[string]types.Preset) []string {
	out := slices.Clone(builtinOrder)
	var extra []string
	for k := range user {
		if !IsBuiltin(k) {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

// Key derives a preset key from a display name, appending _N while the key
// collides with a built-in.
func Key(name string) string {
	base := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	key := base
	for n := 1; IsBuiltin(key); n++ {
		key = base + "_" + strconv.Itoa(n)
	}
	return key
}

// Match returns the key of the preset whose parameters equal p, or CustomKey.
func Match(p types.GenerationParams, user map[string]types.Preset) string {
	all := All(user)
	for _, k := range Keys(user) {
		if all[k].Parameters.SameSampling(p) {
			return k
		}
	}
	return CustomKey
}

// Merge copies imported into a new map on top of user; imported entries win
// on duplicate keys. It returns the merged map and how many keys were new.
func Merge(user, imported map[string]types.Preset) (map[string]types.Preset, int) {
	out := maps.Clone(user)
	if out == nil {
		out = make(map[string]types.Preset, len(imported))
	}
	added := 0
	for k, v := range imported {
		if _, ok := out[k]; !ok {
			added++
		}
		out[k] = v
	}
	return out, added
}

// Import decodes a JSON object of presets. Entries with built-in keys or
// out-of-range parameters are rejected.
func Import(r io.Reader) (map[string]types.Preset, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("invalid preset file: expected a JSON object")
	}
	var out map[string]types.Preset
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	for k, v := range out {
		if k == "" || IsBuiltin(k) {
			return nil, fmt.Errorf("preset key %q is reserved", k)
		}
		if err := v.Parameters.Validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", k, err)
		}
	}
	return out, nil
}

// Export writes presets as indented JSON.
func Export(w io.Writer, presets map[string]types.Preset) error {
	if presets == nil {
		presets = map[string]types.Preset{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(presets)
}
