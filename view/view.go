package view

import (
	"sync"
	"time"

	"h2oclear/api/models"
)

type Kind string

const (
	KindPage   Kind = "page"
	KindTable  Kind = "table"
	KindSeries Kind = "series"
	KindDevice Kind = "device"
	KindNotice Kind = "notice"
)

// Notice kinds.
const (
	NoticeInfo    = "info"
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Notice is a transient message shown to the user.
type Notice struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// Update is one change to what the client should display. Only the fields
// relevant to Kind are set.
type Update struct {
	Kind        Kind               `json:"kind"`
	Page        models.Page        `json:"page,omitempty"`
	URL         string             `json:"url,omitempty"`
	Rows        []models.Detection `json:"rows,omitempty"`
	Placeholder string             `json:"placeholder,omitempty"`
	Series      []int              `json:"series,omitempty"`
	Device      string             `json:"device,omitempty"`
	Notice      *Notice            `json:"notice,omitempty"`
	At          time.Time          `json:"at"`
	// Seq orders table and series updates within a session. Zero means
	// unordered.
	Seq uint64 `json:"seq,omitempty"`
}

// View receives updates from a session controller. Implementations must not
// block for long; Apply is called with the session lock released.
type View interface {
	Apply(u Update)
}

// Multi fans an update out to several views.
type Multi []View

func (m Multi) Apply(u Update) {
	for _, v := range m {
		v.Apply(u)
	}
}

// Rendered is the folded result of every update a session has produced.
type Rendered struct {
	Page        models.Page        `json:"page"`
	URL         string             `json:"url"`
	Rows        []models.Detection `json:"rows"`
	Placeholder string             `json:"placeholder,omitempty"`
	Series      []int              `json:"series"`
	Device      string             `json:"device"`
	Notice      *Notice            `json:"notice,omitempty"`
}

// Snapshot keeps the latest rendered state.
type Snapshot struct {
	mu sync.RWMutex
	r  Rendered

	tableSeq  uint64
	seriesSeq uint64
}

func NewSnapshot() *Snapshot {
	return &Snapshot{r: Rendered{Page: models.PageHome, URL: "/", Device: DeviceNotConnected}}
}

// Device status labels.
const (
	DeviceNotConnected = "Not Connected"
	DeviceConnecting   = "Connecting..."
	DeviceConnected    = "Connected"
	DeviceTransferring = "Transferring data..."
)

func (s *Snapshot) Apply(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch u.Kind {
	case KindPage:
		s.r.Page = u.Page
		s.r.URL = u.URL
	case KindTable:
		if stale(u.Seq, &s.tableSeq) {
			return
		}
		s.r.Rows = append([]models.Detection(nil), u.Rows...)
		s.r.Placeholder = u.Placeholder
	case KindSeries:
		if stale(u.Seq, &s.seriesSeq) {
			return
		}
		s.r.Series = append([]int(nil), u.Series...)
	case KindDevice:
		s.r.Device = u.Device
	case KindNotice:
		s.r.Notice = u.Notice
	}
}

// Current returns a copy of the rendered state.
func (s *Snapshot) Current() Rendered {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := s.r
	r.Rows = append([]models.Detection(nil), s.r.Rows...)
	r.Series = append([]int(nil), s.r.Series...)
	return r
}

// stale reports whether seq is older than *last, and records it otherwise.
func stale(seq uint64, last *uint64) bool {
	if seq == 0 {
		return false
	}
	if seq < *last {
		return true
	}
	*last = seq
	return false
}
