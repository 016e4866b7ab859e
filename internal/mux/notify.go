package mux

import (
	"sync"

	"github.com/loppo-llc/termmux/internal/id"
)

// Notification is the sum type of every event the Mux publishes. Exactly
// one field group is meaningful per Kind.
type Kind int

const (
	PaneOutput Kind = iota
	PaneAdded
	PaneRemoved
	WindowCreated
	WindowRemoved
	WindowInvalidated
	WindowTitleChanged
	WindowWorkspaceChanged
	TabTitleChanged
	TabResized
	TabAddedToWindow
	PaneFocused
	Alert
	Empty
	AssignClipboard
	SaveToDownloads
	ActiveWorkspaceChanged
	WorkspaceRenamed
)

// Notification carries whichever fields its Kind uses; unused fields are
// left zero.
type Notification struct {
	Kind Kind

	PaneID   id.PaneId
	WindowID id.WindowId
	TabID    id.TabId
	ClientID id.ClientId

	Title       string
	AlertText   string
	Selection   string
	Clipboard   *string
	Name        *string
	Data        []byte
	OldWorkspace string
	NewWorkspace string
}

// Subscriber is invoked for every notification until it returns false, at
// which point it is automatically unsubscribed.
type Subscriber func(Notification) bool

type notifyBus struct {
	mu    sync.Mutex
	subs  map[id.SubId]Subscriber
	allocator id.SubAllocator
}

func newNotifyBus() *notifyBus {
	return &notifyBus{subs: make(map[id.SubId]Subscriber)}
}

func (b *notifyBus) Subscribe(cb Subscriber) id.SubId {
	b.mu.Lock()
	defer b.mu.Unlock()
	subID := b.allocator.Alloc()
	b.subs[subID] = cb
	return subID
}

func (b *notifyBus) Unsubscribe(subID id.SubId) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, subID)
}

// Notify invokes every subscriber currently registered, removing any that
// return false. Snapshotting the subscriber list before invoking allows a
// callback to subscribe/unsubscribe without deadlocking on b.mu.
func (b *notifyBus) Notify(n Notification) {
	b.mu.Lock()
	snapshot := make(map[id.SubId]Subscriber, len(b.subs))
	for k, v := range b.subs {
		snapshot[k] = v
	}
	b.mu.Unlock()

	var dead []id.SubId
	for subID, cb := range snapshot {
		if !cb(n) {
			dead = append(dead, subID)
		}
	}
	if len(dead) == 0 {
		return
	}
	b.mu.Lock()
	for _, subID := range dead {
		delete(b.subs, subID)
	}
	b.mu.Unlock()
}
