package sdk

import "strings"

// matchTopic reports whether an MQTT topic filter matches a concrete
// topic. The + wildcard matches exactly one level. The # wildcard must be
// the final level and matches the remainder of the topic, including the
// parent level itself.
func matchTopic(filter, topic string) bool {
	if filter == topic {
		return true
	}

	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range filterParts {
		// "a/#" matches "a" as well as everything below it, so the
		// multi-level check runs before the length check.
		if part == "#" {
			return i == len(filterParts)-1
		}
		if i >= len(topicParts) {
			return false
		}
		if part != "+" && part != topicParts[i] {
			return false
		}
	}

	return len(filterParts) == len(topicParts)
}
