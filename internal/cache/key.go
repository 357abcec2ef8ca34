package cache

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Namespaces used for cache keys
const (
	NamespaceAnalytics    = "analytics"
	NamespaceTransactions = "transactions"
)

// Key identifies one cached result. Every parameter that affects the
// result must be present in Params so distinct inputs never collide.
type Key struct {
	Namespace string
	Owner     int64
	Op        string
	Params    map[string]string
}

// NewKey starts a key for namespace/owner/op
func NewKey(namespace string, owner int64, op string) Key {
	return Key{Namespace: namespace, Owner: owner, Op: op, Params: map[string]string{}}
}

// With returns the key with an added parameter; empty values are dropped
func (k Key) With(name, value string) Key {
	if value == "" {
		return k
	}
	params := make(map[string]string, len(k.Params)+1)
	for n, v := range k.Params {
		params[n] = v
	}
	params[name] = value
	k.Params = params
	return k
}

// String renders <namespace>:user:<owner>:<op>[:k=v...] with params sorted by name
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Namespace)
	b.WriteString(":user:")
	b.WriteString(strconv.FormatInt(k.Owner, 10))
	b.WriteString(":")
	b.WriteString(k.Op)

	names := make([]string, 0, len(k.Params))
	for n := range k.Params {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		b.WriteString(":")
		b.WriteString(url.QueryEscape(n))
		b.WriteString("=")
		b.WriteString(url.QueryEscape(k.Params[n]))
	}
	return b.String()
}

// IndexKey is the set holding every cache key stored for owner
func IndexKey(owner int64) string {
	return "idx:user:" + strconv.FormatInt(owner, 10)
}

// inNamespace reports whether a rendered key belongs to one of namespaces.
// No namespaces matches everything.
func inNamespace(key string, namespaces []string) bool {
	if len(namespaces) == 0 {
		return true
	}
	for _, ns := range namespaces {
		if strings.HasPrefix(key, ns+":user:") {
			return true
		}
	}
	return false
}
