package ext

// RateListener listens for rate changes.
type RateListener struct {
	RateUpdateChan chan *struct{}
}

func NewRateListener() *RateListener {
	return &RateListener{
		RateUpdateChan: make(chan *struct{}, 1),
	}
}

// Notify signals the listener without blocking. A listener that has not yet
// drained a previous signal is not signalled twice.
func (rl *RateListener) Notify() {
	select {
	case rl.RateUpdateChan <- &struct{}{}:
	default:
	}
}
