package referenda

import (
	"encoding/json"
	"math"
	"strconv"
)

const (
	referendaPallet = "Referenda"
	submittedEvent  = "Submitted"
)

// ExtractReferendumIndex scans the events of a finalized transaction for
// Referenda.Submitted and reads the index from its first data field. A
// missing event or a value that is not a non-negative integer leaves the
// index unset.
func ExtractReferendumIndex(events []ChainEvent) (uint32, bool) {
	for _, event := range events {
		if event.Pallet != referendaPallet || event.Name != submittedEvent {
			continue
		}
		if len(event.Data) == 0 {
			log.Warnf("%s.%s event carries no data", referendaPallet, submittedEvent)
			return 0, false
		}
		index, ok := toIndex(event.Data[0])
		if !ok {
			log.Warnf("%s.%s event has a malformed index: %v", referendaPallet, submittedEvent, event.Data[0])
		}
		return index, ok
	}

	log.Warnf("Finalized events carry no %s.%s event", referendaPallet, submittedEvent)
	return 0, false
}

func toIndex(v interface{}) (uint32, bool) {
	var u uint64
	switch n := v.(type) {
	case uint32:
		return n, true
	case uint64:
		u = n
	case uint:
		u = uint64(n)
	case int:
		if n < 0 {
			return 0, false
		}
		u = uint64(n)
	case int64:
		if n < 0 {
			return 0, false
		}
		u = uint64(n)
	case float64:
		if n < 0 || n != math.Trunc(n) || n > math.MaxUint32 {
			return 0, false
		}
		u = uint64(n)
	case json.Number:
		parsed, err := strconv.ParseUint(n.String(), 10, 32)
		if err != nil {
			return 0, false
		}
		u = parsed
	case string:
		parsed, err := strconv.ParseUint(n, 10, 32)
		if err != nil {
			return 0, false
		}
		u = parsed
	default:
		return 0, false
	}

	if u > math.MaxUint32 {
		return 0, false
	}
	return uint32(u), true
}
