//go:build !linux

package rtthread

import "github.com/tphakala/go-audioclient/internal/errors"

func currentTID() int { return 0 }

func setThreadName(string) error { return nil }

func elevate(_ int, p Priority) (Priority, error) {
	if p == PriorityNormal || p == "" {
		return PriorityNormal, nil
	}
	return PriorityNormal, errors.Newf("thread priority control not supported on this platform").
		Component(ComponentRTThread).
		Category(errors.CategoryNotImplemented).
		Build()
}
