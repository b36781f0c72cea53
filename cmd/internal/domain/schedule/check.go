package schedule

import "errors"

// Conflict reasons returned by CheckSlot. Callers translate these to API
// responses; the booking transaction translates a lost race to ErrSlotTaken.
var (
	ErrBreakConflict = errors.New("requested time overlaps an employee break")
	ErrEmployeeBusy  = errors.New("employee already has an appointment in this time")
	ErrResourceBusy  = errors.New("resource is already allocated in this time")
	ErrSlotTaken     = errors.New("slot is no longer available")
)

// ResourceBusyError wraps ErrResourceBusy with the offending resource.
type ResourceBusyError struct {
	ResourceID int
}

func (e *ResourceBusyError) Error() string { return ErrResourceBusy.Error() }

func (e *ResourceBusyError) Unwrap() error { return ErrResourceBusy }

// CheckSlot decides whether a requested range can be booked given the
// employee's breaks, the employee's existing appointments, and the existing
// allocations of each requested resource, all reduced to ranges on the
// requested date. Checks run in fixed order: validation, breaks, employee,
// resources.
func CheckSlot(req Range, breaks, busy []Range, resources map[int][]Range) error {
	if !req.Valid() {
		return ErrInvalidRange
	}
	for _, b := range breaks {
		if req.Overlaps(b) {
			return ErrBreakConflict
		}
	}
	for _, a := range busy {
		if req.Overlaps(a) {
			return ErrEmployeeBusy
		}
	}
	for id, allocs := range resources {
		for _, a := range allocs {
			if req.Overlaps(a) {
				return &ResourceBusyError{ResourceID: id}
			}
		}
	}
	return nil
}

// FreeSlots steps through the working day in increments of step minutes and
// returns every slot of the given duration that overlaps none of the busy
// ranges. Busy ranges include breaks and appointments alike.
func FreeSlots(day Range, busy []Range, step, duration int) []Range {
	if step <= 0 || duration <= 0 || !day.Valid() {
		return nil
	}

	var free []Range
	for start := day.Start; start+duration <= day.End; start += step {
		slot := Range{Start: start, End: start + duration}
		blocked := false
		for _, b := range busy {
			if slot.Overlaps(b) {
				blocked = true
				break
			}
		}
		if !blocked {
			free = append(free, slot)
		}
	}
	return free
}
