package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when the configuration leaves the prefix empty.
const DefaultTopicPrefix = "iotsim"

// Topics builds the simulator topic hierarchy under a common prefix.
//
//	{prefix}/status/{client}              retained online/offline state
//	{prefix}/discovery/{host}{uri}        retained resource announcement
//	{prefix}/request/{host}               requests addressed to a host
//	{prefix}/response/{client}            responses for a requesting client
//	{prefix}/notify/{client}              observe notifications
//
// Resource URIs carry their own slashes, so a discovery topic has as many
// levels as the URI has segments.
type Topics struct {
	Prefix string
}

// NewTopics returns a Topics for prefix, falling back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// Status returns the retained status topic of a client.
//
// Example: iotsim/status/simulator-001
func (t Topics) Status(clientID string) string {
	return fmt.Sprintf("%s/status/%s", t.prefix(), clientID)
}

// Discovery returns the retained announcement topic of a hosted resource.
//
// Example: iotsim/discovery/simulator-001/a/light
func (t Topics) Discovery(host, uri string) string {
	if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}
	return fmt.Sprintf("%s/discovery/%s%s", t.prefix(), host, uri)
}

// AllDiscovery matches every announcement of every host.
//
// Pattern: iotsim/discovery/#
func (t Topics) AllDiscovery() string {
	return fmt.Sprintf("%s/discovery/#", t.prefix())
}

// Request returns the topic a host listens on for requests.
//
// Example: iotsim/request/simulator-001
func (t Topics) Request(host string) string {
	return fmt.Sprintf("%s/request/%s", t.prefix(), host)
}

// Response returns the topic a client receives responses on.
//
// Example: iotsim/response/simulator-002
func (t Topics) Response(clientID string) string {
	return fmt.Sprintf("%s/response/%s", t.prefix(), clientID)
}

// Notify returns the topic a client receives observe notifications on.
//
// Example: iotsim/notify/simulator-002
func (t Topics) Notify(clientID string) string {
	return fmt.Sprintf("%s/notify/%s", t.prefix(), clientID)
}

// ValidSegment reports whether s can be used as a single topic level.
func ValidSegment(s string) bool {
	return s != "" && !strings.ContainsAny(s, "/+#")
}

// Match reports whether topic matches the subscription filter, honouring
// the + (single-level) and # (multi-level) wildcards.
func Match(filter, topic string) bool {
	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")
	for i, f := range fl {
		if f == "#" {
			return true
		}
		if i >= len(tl) {
			return false
		}
		if f != "+" && f != tl[i] {
			return false
		}
	}
	return len(fl) == len(tl)
}
