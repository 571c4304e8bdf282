package wire

import "github.com/warren-mesh/warren/pkg/constants"

// Topic derives the fixed mesh topic identifier by zero-padding an ASCII
// name to constants.TopicByteLen bytes (spec §6 "Topic").
func Topic(name string) [constants.TopicByteLen]byte {
	var topic [constants.TopicByteLen]byte
	copy(topic[:], []byte(name))
	return topic
}

// DefaultTopic is the single fixed topic identifier the fabric gossips on.
var DefaultTopic = Topic("warren/secrets")
