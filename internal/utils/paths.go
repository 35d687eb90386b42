package utils

import (
	"net/url"
	"strings"
)

// Placeholder segments used in templated paths. {id:int} и {id:uuid}
// сохраняют тип исходного значения, {param} — просто "что-то меняется".
const (
	PlaceholderInt   = "{id:int}"
	PlaceholderUUID  = "{id:uuid}"
	PlaceholderParam = "{param}"
)

// IsPlaceholder reports whether a path segment is one of the placeholders.
func IsPlaceholder(segment string) bool {
	switch segment {
	case PlaceholderInt, PlaceholderUUID, PlaceholderParam:
		return true
	}
	return false
}

// SplitPath splits a URL path into segments. The leading empty segment from
// the initial "/" is kept so that indexes line up across every caller.
func SplitPath(path string) []string {
	return strings.Split(path, "/")
}

// PathShape masks ID-looking segments so that paths differing only in
// concrete IDs collapse to the same shape. Segment 0 is never masked; with
// the leading "/" kept by SplitPath it is the empty segment, so /1/users
// and /2/users still collapse to /*/users.
func PathShape(segments []string) string {
	masked := make([]string, len(segments))
	for i, seg := range segments {
		if i > 0 && (IsDigits(seg) || IsUUIDString(seg)) {
			masked[i] = "*"
			continue
		}
		masked[i] = seg
	}
	return strings.Join(masked, "/")
}

// DeriveTemplate builds a templated path from a group of observed concrete
// paths. Per position: any digit value wins {id:int}, else any UUID wins
// {id:uuid}, else a varying value becomes {param}, else the literal stays.
// Положение 0 всегда остаётся литералом.
func DeriveTemplate(paths [][]string) string {
	if len(paths) == 0 {
		return ""
	}
	base := paths[0]
	out := make([]string, len(base))
	for i, seg := range base {
		if i == 0 {
			out[i] = seg
			continue
		}
		var anyInt, anyUUID, varies bool
		for _, p := range paths {
			if i >= len(p) {
				varies = true
				continue
			}
			switch {
			case IsDigits(p[i]):
				anyInt = true
			case IsUUIDString(p[i]):
				anyUUID = true
			}
			if p[i] != seg {
				varies = true
			}
		}
		switch {
		case anyInt:
			out[i] = PlaceholderInt
		case anyUUID:
			out[i] = PlaceholderUUID
		case varies:
			out[i] = PlaceholderParam
		default:
			out[i] = seg
		}
	}
	return strings.Join(out, "/")
}

// SubstitutePlaceholders replaces every placeholder in a templated path with
// the given concrete value.
func SubstitutePlaceholders(template, value string) string {
	s := strings.ReplaceAll(template, PlaceholderInt, value)
	s = strings.ReplaceAll(s, PlaceholderUUID, value)
	return strings.ReplaceAll(s, PlaceholderParam, value)
}

// TemplateURL склеивает scheme://authority источника с шаблонным путём.
// Ручная конкатенация вместо url.URL.String, иначе фигурные скобки
// плейсхолдеров будут переписаны в %7B/%7D.
func TemplateURL(sourceURL, template string) string {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return template
	}
	return u.Scheme + "://" + u.Host + template
}

// ConcretizeURL rebuilds a full request URL from an observed source URL and
// a templated path, substituting value into the placeholder positions.
// Scheme and authority come from sourceURL; only the path changes.
func ConcretizeURL(sourceURL, template, value string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return SubstitutePlaceholders(template, value)
	}
	tsegs := strings.Split(template, "/")
	psegs := strings.Split(u.Path, "/")
	for i, seg := range tsegs {
		if IsPlaceholder(seg) && i < len(psegs) {
			psegs[i] = value
		}
	}
	u.Path = strings.Join(psegs, "/")
	return u.String()
}
