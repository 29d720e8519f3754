package audioclient

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tphakala/go-audioclient/internal/errors"
	"github.com/tphakala/go-audioclient/internal/logger"
)

// DefaultMarshalLimit caps the outstanding handles of a Marshaler
const DefaultMarshalLimit = 4096

// Handle is a transportable reference to a capability view
type Handle uuid.UUID

func (h Handle) String() string { return uuid.UUID(h).String() }

// Marshaler holds views that were marshaled and not yet unmarshaled. Each
// entry owns one reference on its view.
type Marshaler struct {
	mu      sync.Mutex
	entries map[Handle]Unknown
	limit   int
	log     logger.Logger
}

var (
	defaultMarshaler     *Marshaler
	defaultMarshalerOnce sync.Once
)

// DefaultMarshaler returns the process-wide registry
func DefaultMarshaler() *Marshaler {
	defaultMarshalerOnce.Do(func() {
		defaultMarshaler = NewMarshaler(DefaultMarshalLimit)
	})
	return defaultMarshaler
}

// NewMarshaler returns a registry holding at most limit handles
func NewMarshaler(limit int) *Marshaler {
	if limit <= 0 {
		limit = DefaultMarshalLimit
	}
	return &Marshaler{
		entries: make(map[Handle]Unknown),
		limit:   limit,
		log:     logger.Global().Module("audioclient").Module("marshal"),
	}
}

func (m *Marshaler) register(v Unknown) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) >= m.limit {
		return Handle{}, errors.New(ErrOutOfMemory).
			Context("outstanding", len(m.entries)).
			Build()
	}
	h := Handle(uuid.New())
	m.entries[h] = v
	return h, nil
}

func (m *Marshaler) take(h Handle) (Unknown, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[h]
	if !ok {
		return nil, invalidArg("handle", h.String())
	}
	delete(m.entries, h)
	return v, nil
}

// Unmarshal returns the view behind h. The reference held by the handle
// moves to the caller and the handle becomes invalid.
func (m *Marshaler) Unmarshal(h Handle) (Unknown, error) {
	return m.take(h)
}

// ReleaseMarshalData discards h and the reference it holds
func (m *Marshaler) ReleaseMarshalData(h Handle) error {
	v, err := m.take(h)
	if err != nil {
		return err
	}
	v.Release()
	return nil
}

// Len returns the number of outstanding handles
func (m *Marshaler) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Marshal is the marshal capability shared by every view of one client
type Marshal struct {
	c *Client
}

func (m *Marshal) QueryInterface(iid IID) (any, error) { return m.c.QueryInterface(iid) }
func (m *Marshal) AddRef() uint32                      { return m.c.AddRef() }
func (m *Marshal) Release() uint32                     { return m.c.Release() }

// MarshalInterface obtains the iid capability of the client, or the iid
// service of its stream, and returns a handle another party can unmarshal
// it from.
func (m *Marshal) MarshalInterface(iid IID) (Handle, error) {
	obj, err := m.c.QueryInterface(iid)
	if errors.Is(err, ErrNoInterface) {
		obj, err = m.c.GetService(iid)
	}
	if err != nil {
		return Handle{}, err
	}
	v, ok := obj.(Unknown)
	if !ok {
		if r, ok := obj.(interface{ Release() uint32 }); ok {
			r.Release()
		}
		return Handle{}, noInterface(iid)
	}
	h, err := m.c.marshaler.register(v)
	if err != nil {
		v.Release()
		return Handle{}, err
	}
	m.c.marshaler.log.Debug("interface marshaled",
		logger.String("iid", iid.String()),
		logger.String("handle", h.String()))
	return h, nil
}
