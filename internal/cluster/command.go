package cluster

// Command is one administrative command as handed to the cluster manager.
// The gateway never interprets the payload beyond its prefix; the manager
// owns the command vocabulary.
type Command map[string]any

// Prefix returns the command name, or "" when the payload has none.
func (c Command) Prefix() string {
	prefix, _ := c["prefix"].(string)
	return prefix
}
