//go:build linux

package rtthread

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func currentTID() int {
	return unix.Gettid()
}

func setThreadName(name string) error {
	p, err := unix.BytePtrFromString(name)
	if err != nil {
		return err
	}
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(p)), 0, 0, 0)
}

// elevate applies SCHED_FIFO for realtime requests and falls back to a
// negative nice value, which needs less privilege.
func elevate(tid int, p Priority) (Priority, error) {
	switch p {
	case PriorityRealtime:
		attr := &unix.SchedAttr{
			Size:     unix.SizeofSchedAttr,
			Policy:   unix.SCHED_FIFO,
			Priority: fifoPriority,
		}
		fifoErr := unix.SchedSetAttr(0, attr, 0)
		if fifoErr == nil {
			return PriorityRealtime, nil
		}
		if err := unix.Setpriority(unix.PRIO_PROCESS, tid, highNice); err != nil {
			return PriorityNormal, fifoErr
		}
		return PriorityHigh, fifoErr
	case PriorityHigh:
		if err := unix.Setpriority(unix.PRIO_PROCESS, tid, highNice); err != nil {
			return PriorityNormal, err
		}
		return PriorityHigh, nil
	default:
		return PriorityNormal, nil
	}
}
