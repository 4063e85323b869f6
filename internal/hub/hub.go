package hub

import "sync"

// Subscriber receives events for the topics it subscribed to. Notify must not
// block: the hub delivers synchronously to keep per-topic publish order, so a
// slow subscriber would stall its co-subscribers. Returning an error marks the
// subscriber dead and removes it from all topics.
type Subscriber[E any] interface {
	Notify(event E) error
}

// Hub fans events out to the current subscribers of a topic. Delivery is
// best-effort and at-most-once per subscriber per Publish call; events for the
// same topic are delivered in Publish order.
type Hub[E any] struct {
	mu      sync.Mutex
	byTopic map[string]map[Subscriber[E]]struct{}
	bySub   map[Subscriber[E]]map[string]struct{}
}

func New[E any]() *Hub[E] {
	return &Hub[E]{
		byTopic: make(map[string]map[Subscriber[E]]struct{}),
		bySub:   make(map[Subscriber[E]]map[string]struct{}),
	}
}

// Subscribe registers interest in a topic. A subscriber may watch multiple
// topics and a topic may have multiple subscribers.
func (h *Hub[E]) Subscribe(sub Subscriber[E], topic string) {
	if topic == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byTopic[topic] == nil {
		h.byTopic[topic] = make(map[Subscriber[E]]struct{})
	}
	h.byTopic[topic][sub] = struct{}{}
	if h.bySub[sub] == nil {
		h.bySub[sub] = make(map[string]struct{})
	}
	h.bySub[sub][topic] = struct{}{}
}

// Unsubscribe removes interest in a single topic.
func (h *Hub[E]) Unsubscribe(sub Subscriber[E], topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(sub, topic)
}

// UnsubscribeAll removes the subscriber from every topic it watches. Called
// when a subscriber disconnects.
func (h *Hub[E]) UnsubscribeAll(sub Subscriber[E]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic := range h.bySub[sub] {
		h.drop(sub, topic)
	}
}

// Publish delivers the event to every current subscriber of the topic. A
// failed delivery removes that subscriber from all its subscriptions without
// affecting delivery to the others. Publishing to a topic with no subscribers
// is a no-op.
func (h *Hub[E]) Publish(topic string, event E) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var dead []Subscriber[E]
	for sub := range h.byTopic[topic] {
		if err := sub.Notify(event); err != nil {
			dead = append(dead, sub)
		}
	}
	for _, sub := range dead {
		for t := range h.bySub[sub] {
			h.drop(sub, t)
		}
	}
}

// Subscribers reports how many subscribers currently watch the topic.
func (h *Hub[E]) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byTopic[topic])
}

// drop removes one (subscriber, topic) edge. Caller holds h.mu.
func (h *Hub[E]) drop(sub Subscriber[E], topic string) {
	if subs, ok := h.byTopic[topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.byTopic, topic)
		}
	}
	if topics, ok := h.bySub[sub]; ok {
		delete(topics, topic)
		if len(topics) == 0 {
			delete(h.bySub, sub)
		}
	}
}
