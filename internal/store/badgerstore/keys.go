package badgerstore

import (
	"net/url"
	"strings"
)

// Key layout, per entity prefix:
//
//	{prefix}{id}                         → entity JSON
//	{prefix}idx:{name}:{value}:{id}      → empty (non-unique index)
//	{prefix}uidx:{name}:{value}          → id    (unique index)
//
// Index values are query-escaped so a ':' inside a workspace or node id can
// never make one value's key range swallow another's.
const (
	indexSegment       = "idx:"
	uniqueIndexSegment = "uidx:"
)

func escapeValue(v string) string {
	return url.QueryEscape(v)
}

// compound joins several index parts into one index value.
func compound(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// indexPrefix is the key range holding every entry for value in a non-unique index.
func indexPrefix(prefix, name, value string) []byte {
	var b strings.Builder
	b.Grow(len(prefix) + len(indexSegment) + len(name) + len(value) + 8)
	b.WriteString(prefix)
	b.WriteString(indexSegment)
	b.WriteString(name)
	b.WriteByte(':')
	b.WriteString(escapeValue(value))
	b.WriteByte(':')
	return []byte(b.String())
}

func indexKey(prefix, name, value, id string) []byte {
	return append(indexPrefix(prefix, name, value), id...)
}

func uniqueIndexKey(prefix, name, value string) []byte {
	return []byte(prefix + uniqueIndexSegment + name + ":" + escapeValue(value))
}

