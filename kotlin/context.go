package kotlin

import "sync"

// Intent carries a broadcast action plus typed extras
type Intent struct {
	Action string
	extras map[string]interface{}
}

// NewIntent creates an intent for the given action
func NewIntent(action string) *Intent {
	return &Intent{
		Action: action,
		extras: make(map[string]interface{}),
	}
}

// PutExtra attaches a named extra and returns the intent for chaining
func (i *Intent) PutExtra(name string, value interface{}) *Intent {
	i.extras[name] = value
	return i
}

// IntExtra returns a named int extra, or defaultValue if absent
func (i *Intent) IntExtra(name string, defaultValue int) int {
	if v, ok := i.extras[name].(int); ok {
		return v
	}
	return defaultValue
}

// Extra returns a named extra, or nil if absent
func (i *Intent) Extra(name string) interface{} {
	return i.extras[name]
}

// BroadcastReceiver matches Android's BroadcastReceiver contract
type BroadcastReceiver interface {
	OnReceive(ctx *Context, intent *Intent)
}

// IntentFilter selects which broadcast actions a receiver gets
type IntentFilter struct {
	actions map[string]struct{}
}

// NewIntentFilter creates a filter matching the given actions
func NewIntentFilter(actions ...string) *IntentFilter {
	f := &IntentFilter{actions: make(map[string]struct{})}
	for _, a := range actions {
		f.AddAction(a)
	}
	return f
}

// AddAction adds one action to the filter
func (f *IntentFilter) AddAction(action string) {
	f.actions[action] = struct{}{}
}

// Matches reports whether the filter covers the action
func (f *IntentFilter) Matches(action string) bool {
	_, ok := f.actions[action]
	return ok
}

type registeredReceiver struct {
	receiver BroadcastReceiver
	filter   *IntentFilter
}

// Context is the slice of an Android context this simulation needs:
// system service lookup, broadcast registration and delivery.
type Context struct {
	looper *Looper

	mu        sync.Mutex
	services  map[string]interface{}
	receivers []*registeredReceiver
}

// NewContext creates a context whose broadcasts dispatch on the given looper
func NewContext(looper *Looper) *Context {
	return &Context{
		looper:   looper,
		services: make(map[string]interface{}),
	}
}

// Looper returns the context's dispatch looper
func (c *Context) Looper() *Looper {
	return c.looper
}

// RegisterService installs a named system service
func (c *Context) RegisterService(name string, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = service
}

// GetSystemService returns a named system service, or nil when the device
// does not provide it
func (c *Context) GetSystemService(name string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.services[name]
}

// RegisterReceiver subscribes a receiver for broadcasts matching the filter
func (c *Context) RegisterReceiver(receiver BroadcastReceiver, filter *IntentFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receivers = append(c.receivers, &registeredReceiver{receiver: receiver, filter: filter})
}

// UnregisterReceiver removes a previously registered receiver. Safe to call
// for a receiver that was never registered.
func (c *Context) UnregisterReceiver(receiver BroadcastReceiver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.receivers[:0]
	for _, r := range c.receivers {
		if r.receiver != receiver {
			kept = append(kept, r)
		}
	}
	c.receivers = kept
}

// SendBroadcast posts the intent to every matching receiver on the looper
func (c *Context) SendBroadcast(intent *Intent) {
	c.mu.Lock()
	matched := make([]BroadcastReceiver, 0, len(c.receivers))
	for _, r := range c.receivers {
		if r.filter.Matches(intent.Action) {
			matched = append(matched, r.receiver)
		}
	}
	c.mu.Unlock()

	for _, receiver := range matched {
		receiver := receiver
		c.looper.Post(func() {
			receiver.OnReceive(c, intent)
		})
	}
}
