package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// normalizeNarrations converts the narration payload into a map keyed by
// 1-based scene number. Two shapes are accepted: a JSON array of strings in
// scene order, or an object keyed "scene_<n>" (a bare "<n>" also works).
// Shape-sniffing stays here at the boundary; the rest of the pipeline only
// ever sees the normalized map.
func normalizeNarrations(raw json.RawMessage, numScenes int) (map[int]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var asList []string
	if err := json.Unmarshal(raw, &asList); err == nil {
		texts := make(map[int]string)
		for i, text := range asList {
			if i >= numScenes {
				break
			}
			if text != "" {
				texts[i+1] = text
			}
		}
		return texts, nil
	}

	var asMap map[string]string
	if err := json.Unmarshal(raw, &asMap); err == nil {
		texts := make(map[int]string)
		for key, text := range asMap {
			if text == "" {
				continue
			}
			scene, err := sceneNumber(key)
			if err != nil {
				return nil, fmt.Errorf("bad narration key %q: %w", key, err)
			}
			if scene < 1 || scene > numScenes {
				return nil, fmt.Errorf("narration key %q out of range (1-%d)", key, numScenes)
			}
			texts[scene] = text
		}
		return texts, nil
	}

	return nil, fmt.Errorf("narrations must be an array of strings or a scene_<n> keyed object")
}

// sceneNumber parses "scene_<n>" or "<n>" into n.
func sceneNumber(key string) (int, error) {
	key = strings.TrimPrefix(key, "scene_")
	return strconv.Atoi(key)
}
