package websocket

import (
	"sync"
)

// Subscriber receives frames published to the topics it is subscribed to.
type Subscriber interface {
	ID() string
	Send(frame []byte) error
}

// Broker is the pub/sub substrate behind rooms. Topics are "user:<id>" and
// "chat:<id>".
type Broker interface {
	Subscribe(sub Subscriber, topic string)
	Unsubscribe(sub Subscriber, topic string)
	UnsubscribeAll(sub Subscriber) []string
	// Publish delivers frame to every subscriber of topic except the one
	// given, and returns how many subscribers accepted it.
	Publish(topic string, frame []byte, except Subscriber) int
	IsSubscribed(sub Subscriber, topic string) bool
	Topics(sub Subscriber) []string
}

// LocalBroker is an in-process Broker.
type LocalBroker struct {
	mu     sync.RWMutex
	topics map[string]map[string]Subscriber
	subs   map[string]map[string]struct{}
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{
		topics: make(map[string]map[string]Subscriber),
		subs:   make(map[string]map[string]struct{}),
	}
}

func (b *LocalBroker) Subscribe(sub Subscriber, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	members, ok := b.topics[topic]
	if !ok {
		members = make(map[string]Subscriber)
		b.topics[topic] = members
	}
	members[sub.ID()] = sub

	joined, ok := b.subs[sub.ID()]
	if !ok {
		joined = make(map[string]struct{})
		b.subs[sub.ID()] = joined
	}
	joined[topic] = struct{}{}
}

func (b *LocalBroker) Unsubscribe(sub Subscriber, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubscribeLocked(sub.ID(), topic)
}

func (b *LocalBroker) UnsubscribeAll(sub Subscriber) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var left []string
	for topic := range b.subs[sub.ID()] {
		left = append(left, topic)
	}
	for _, topic := range left {
		b.unsubscribeLocked(sub.ID(), topic)
	}
	return left
}

func (b *LocalBroker) unsubscribeLocked(subID, topic string) {
	if members, ok := b.topics[topic]; ok {
		delete(members, subID)
		if len(members) == 0 {
			delete(b.topics, topic)
		}
	}
	if joined, ok := b.subs[subID]; ok {
		delete(joined, topic)
		if len(joined) == 0 {
			delete(b.subs, subID)
		}
	}
}

func (b *LocalBroker) Publish(topic string, frame []byte, except Subscriber) int {
	b.mu.RLock()
	targets := make([]Subscriber, 0, len(b.topics[topic]))
	for id, sub := range b.topics[topic] {
		if except != nil && id == except.ID() {
			continue
		}
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		if err := sub.Send(frame); err == nil {
			delivered++
		}
	}
	return delivered
}

func (b *LocalBroker) IsSubscribed(sub Subscriber, topic string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.topics[topic][sub.ID()]
	return ok
}

func (b *LocalBroker) Topics(sub Subscriber) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	topics := make([]string, 0, len(b.subs[sub.ID()]))
	for topic := range b.subs[sub.ID()] {
		topics = append(topics, topic)
	}
	return topics
}
