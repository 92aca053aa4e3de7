package sockchat

// Dispatcher routes decoded client events to registered callbacks. All
// callbacks are optional and fire on the goroutine that produced the
// event; handlers must not block.
type Dispatcher struct {
	onStateChanged     func(StateEvent)
	onMessage          func(ChatMessage)
	onDirectoryChanged func()
	onSessionRejected  func(message string)
	onError            func(error)
}

func (d *Dispatcher) SetOnStateChanged(fn func(StateEvent)) { d.onStateChanged = fn }
func (d *Dispatcher) SetOnMessage(fn func(ChatMessage))     { d.onMessage = fn }
func (d *Dispatcher) SetOnDirectoryChanged(fn func())       { d.onDirectoryChanged = fn }
func (d *Dispatcher) SetOnSessionRejected(fn func(string))  { d.onSessionRejected = fn }
func (d *Dispatcher) SetOnError(fn func(error))             { d.onError = fn }

func (d *Dispatcher) fireStateChanged(ev StateEvent) {
	if d.onStateChanged != nil {
		d.onStateChanged(ev)
	}
}

func (d *Dispatcher) fireMessage(msg ChatMessage) {
	if d.onMessage != nil {
		d.onMessage(msg)
	}
}

func (d *Dispatcher) fireDirectoryChanged() {
	if d.onDirectoryChanged != nil {
		d.onDirectoryChanged()
	}
}

func (d *Dispatcher) fireSessionRejected(message string) {
	if d.onSessionRejected != nil {
		d.onSessionRejected(message)
	}
}

func (d *Dispatcher) fireError(err error) {
	if d.onError != nil && err != nil {
		d.onError(err)
	}
}
