package telecom

// TopicContext tracks the current topic of a conversation and the topics it
// replaced. It is not safe for concurrent use.
type TopicContext struct {
	current  Topic
	previous []Topic
}

// Observe makes t the current topic, pushing the old one onto the history.
func (tc *TopicContext) Observe(t Topic) {
	if tc.current != "" {
		tc.previous = append(tc.previous, tc.current)
	}
	tc.current = t
}

// Current returns the current topic, if any.
func (tc *TopicContext) Current() (Topic, bool) {
	return tc.current, tc.current != ""
}

// Previous returns a copy of the replaced topics, oldest first.
func (tc *TopicContext) Previous() []Topic {
	out := make([]Topic, len(tc.previous))
	copy(out, tc.previous)
	return out
}
