package session

import "github.com/muurk/btscan/internal/discovery"

// Observer receives session notifications. Callbacks run on the controller's
// event loop, one at a time and in order, so they must not block. They may
// call Start and Stop, which only enqueue.
type Observer interface {
	StateChanged(state State)
	DeviceListChanged(devices []discovery.Device)
	ScanEnded(result Result)
	ScanFailed(err *Error)
}

// NopObserver ignores every notification. Embed it to implement only some callbacks.
type NopObserver struct{}

func (NopObserver) StateChanged(State) {}
func (NopObserver) DeviceListChanged([]discovery.Device) {}
func (NopObserver) ScanEnded(Result) {}
func (NopObserver) ScanFailed(*Error) {}

// Observers fans notifications out to several observers in order.
type Observers []Observer

func (o Observers) StateChanged(state State) {
	for _, obs := range o {
		obs.StateChanged(state)
	}
}

func (o Observers) DeviceListChanged(devices []discovery.Device) {
	for _, obs := range o {
		obs.DeviceListChanged(devices)
	}
}

func (o Observers) ScanEnded(result Result) {
	for _, obs := range o {
		obs.ScanEnded(result)
	}
}

func (o Observers) ScanFailed(err *Error) {
	for _, obs := range o {
		obs.ScanFailed(err)
	}
}
