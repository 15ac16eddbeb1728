package mqtt

import "fmt"

// Topic prefixes for the MixLogic MQTT hierarchy.
//
// Commands flow out to the controller bridge on mixlogic/command/{target};
// the controller reports its own state back under mixlogic/console;
// everything Core publishes about itself lives under mixlogic/core.
const (
	// TopicPrefix is the root of every MixLogic topic.
	TopicPrefix = "mixlogic"

	// TopicPrefixCore is the base for state published by Core.
	TopicPrefixCore = "mixlogic/core"

	// TopicPrefixConsole is the base for state reported by the controller.
	TopicPrefixConsole = "mixlogic/console"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "mixlogic/system"
)

// Topics provides builders for MixLogic MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Command("A")
//	// Returns: "mixlogic/command/A"
type Topics struct{}

// Command returns the topic for control surface commands to a target
// (deck A, deck B, or master).
//
// Example: mixlogic/command/A
func (Topics) Command(target string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, target)
}

// AllCommands returns a pattern matching commands for every target.
//
// Pattern: mixlogic/command/+
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefix)
}

// ConsoleState returns the topic on which the controller reports state for
// a deck (A, B), the mixer, or the crowd.
//
// Example: mixlogic/console/A/state
func (Topics) ConsoleState(target string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixConsole, target)
}

// ConsoleLoad returns the topic announcing a track loaded onto a deck.
//
// Example: mixlogic/console/B/load
func (Topics) ConsoleLoad(deck string) string {
	return fmt.Sprintf("%s/%s/load", TopicPrefixConsole, deck)
}

// ConsoleAction returns the topic for manual actions performed by the DJ.
//
// Example: mixlogic/console/action
func (Topics) ConsoleAction() string {
	return fmt.Sprintf("%s/action", TopicPrefixConsole)
}

// AllConsole returns a pattern matching everything the controller reports.
//
// Pattern: mixlogic/console/#
func (Topics) AllConsole() string {
	return fmt.Sprintf("%s/#", TopicPrefixConsole)
}

// TrainingStatus returns the retained training status topic.
//
// Example: mixlogic/core/training/status
func (Topics) TrainingStatus() string {
	return fmt.Sprintf("%s/training/status", TopicPrefixCore)
}

// SessionContext returns the topic for session context snapshots.
//
// Example: mixlogic/core/session/context
func (Topics) SessionContext() string {
	return fmt.Sprintf("%s/session/context", TopicPrefixCore)
}

// Decision returns the topic on which executed decisions are announced.
//
// Example: mixlogic/core/decision
func (Topics) Decision() string {
	return fmt.Sprintf("%s/decision", TopicPrefixCore)
}

// SystemStatus returns the system status topic. Core's LWT is published here.
//
// Example: mixlogic/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllCore returns a pattern matching everything Core publishes.
//
// Pattern: mixlogic/core/#
func (Topics) AllCore() string {
	return fmt.Sprintf("%s/#", TopicPrefixCore)
}
