package analyzer

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// ValueChange — пара старое/новое значение по одному пути.
type ValueChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Diff is a three-way change record between two decoded JSON documents:
// keys present only in the test document, keys present only in the
// baseline, and values that changed in place. Paths are dotted, array
// elements use [i].
type Diff struct {
	Added   map[string]any         `json:"added,omitempty"`
	Removed map[string]any         `json:"removed,omitempty"`
	Changed map[string]ValueChange `json:"changed,omitempty"`
}

// Compare строит структурный дифф. Возвращает nil, если документы
// эквивалентны. Массивы сравниваются без учёта порядка.
func Compare(baseline, test any) *Diff {
	d := &Diff{
		Added:   make(map[string]any),
		Removed: make(map[string]any),
		Changed: make(map[string]ValueChange),
	}
	diffValue("", baseline, test, d)
	if d.Empty() {
		return nil
	}
	return d
}

func (d *Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Paths returns the sorted union of every path the diff touches.
func (d *Diff) Paths() []string {
	paths := make([]string, 0, len(d.Added)+len(d.Removed)+len(d.Changed))
	for p := range d.Added {
		paths = append(paths, p)
	}
	for p := range d.Removed {
		paths = append(paths, p)
	}
	for p := range d.Changed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// String renders the diff in a stable textual form for diff summaries.
func (d *Diff) String() string {
	var parts []string
	for _, p := range sortedDiffKeys(d.Added) {
		parts = append(parts, fmt.Sprintf("added %s=%s", p, renderValue(d.Added[p])))
	}
	for _, p := range sortedDiffKeys(d.Removed) {
		parts = append(parts, fmt.Sprintf("removed %s=%s", p, renderValue(d.Removed[p])))
	}
	changed := make([]string, 0, len(d.Changed))
	for p := range d.Changed {
		changed = append(changed, p)
	}
	sort.Strings(changed)
	for _, p := range changed {
		c := d.Changed[p]
		parts = append(parts, fmt.Sprintf("changed %s: %s -> %s", p, renderValue(c.Old), renderValue(c.New)))
	}
	return strings.Join(parts, "; ")
}

func diffValue(path string, baseline, test any, d *Diff) {
	switch b := baseline.(type) {
	case map[string]any:
		t, ok := test.(map[string]any)
		if !ok {
			d.Changed[path] = ValueChange{Old: baseline, New: test}
			return
		}
		diffObjects(path, b, t, d)
	case []any:
		t, ok := test.([]any)
		if !ok {
			d.Changed[path] = ValueChange{Old: baseline, New: test}
			return
		}
		diffArrays(path, b, t, d)
	default:
		if !reflect.DeepEqual(baseline, test) {
			d.Changed[path] = ValueChange{Old: baseline, New: test}
		}
	}
}

func diffObjects(path string, baseline, test map[string]any, d *Diff) {
	keys := make(map[string]bool, len(baseline)+len(test))
	for k := range baseline {
		keys[k] = true
	}
	for k := range test {
		keys[k] = true
	}
	for k := range keys {
		child := k
		if path != "" {
			child = path + "." + k
		}
		bv, inBaseline := baseline[k]
		tv, inTest := test[k]
		switch {
		case !inBaseline:
			d.Added[child] = tv
		case !inTest:
			d.Removed[child] = bv
		default:
			diffValue(child, bv, tv, d)
		}
	}
}

// diffArrays сопоставляет элементы как мультимножество: каждому элементу
// базовой версии ищется глубоко-равный неиспользованный элемент тестовой.
func diffArrays(path string, baseline, test []any, d *Diff) {
	used := make([]bool, len(test))
	for i, bv := range baseline {
		matched := false
		for j, tv := range test {
			if !used[j] && reflect.DeepEqual(bv, tv) {
				used[j] = true
				matched = true
				break
			}
		}
		if !matched {
			d.Removed[fmt.Sprintf("%s[%d]", path, i)] = bv
		}
	}
	for j, tv := range test {
		if !used[j] {
			d.Added[fmt.Sprintf("%s[%d]", path, j)] = tv
		}
	}
}

func renderValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func sortedDiffKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
