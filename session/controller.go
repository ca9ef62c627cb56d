package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"h2oclear/api/auth"
	"h2oclear/api/device"
	"h2oclear/api/models"
	"h2oclear/api/store"
	"h2oclear/api/telemetry"
	"h2oclear/api/utils"
	"h2oclear/api/view"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrPairingInProgress  = errors.New("device pairing already in progress")
	ErrSessionNotFound    = errors.New("session not found")
)

const (
	transferChance = 0.3
	archiveTimeout = 5 * time.Second
)

// Options configures every controller a Manager creates.
type Options struct {
	Authenticator auth.Authenticator
	Connector     device.Connector
	Archive       store.Archive
	Generator     *telemetry.Generator

	FeedInterval   time.Duration
	StatusInterval time.Duration
	StatusHold     time.Duration
	RedirectDelay  time.Duration

	// CheckOrigin is handed to each session's websocket hub.
	CheckOrigin func(r *http.Request) bool
	Now         func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Authenticator == nil {
		o.Authenticator = auth.Simulated{}
	}
	if o.Connector == nil {
		o.Connector = device.Simulated{}
	}
	if o.Archive == nil {
		o.Archive = store.NopArchive{}
	}
	if o.Generator == nil {
		o.Generator = telemetry.NewGenerator(nil, nil)
	}
	if o.FeedInterval <= 0 {
		o.FeedInterval = 5 * time.Second
	}
	if o.StatusHold <= 0 {
		o.StatusHold = 2 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Controller owns one client session: its state, its sample data and its
// feeds. All state changes happen under mu; view updates and archive writes
// happen after it is released.
type Controller struct {
	id   string
	opts Options

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       models.SessionState
	data        *telemetry.Dataset
	pairing     bool
	feedStarted bool
	lastSeen    time.Time
	seq         uint64

	snapshot *view.Snapshot
	hub      *view.Hub
	out      view.View
}

// NewController starts a fresh session in state {home, false, false}.
func NewController(id string, opts Options, extra ...view.View) *Controller {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		id:       id,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		state:    models.FreshSessionState(),
		data:     telemetry.NewDataset(),
		lastSeen: opts.Now(),
		snapshot: view.NewSnapshot(),
		hub:      view.NewHub(opts.CheckOrigin),
	}
	views := view.Multi{c.snapshot, c.hub}
	c.out = append(views, extra...)

	if opts.StatusInterval > 0 {
		status := &telemetry.Feed{Interval: opts.StatusInterval, OnTick: c.StatusTick}
		go status.Run(ctx)
	}
	return c
}

func (c *Controller) ID() string { return c.id }

// State returns the current session state.
func (c *Controller) State() models.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Rendered returns what the client should currently display.
func (c *Controller) Rendered() view.Rendered {
	return c.snapshot.Current()
}

// Hub is the session's websocket fan-out.
func (c *Controller) Hub() *view.Hub {
	return c.hub
}

// Navigate applies a page change and, for the dashboard, initializes it.
func (c *Controller) Navigate(ctx context.Context, target models.Page) Outcome {
	c.mu.Lock()
	out := Navigate(c.state, target)
	c.state = out.State
	c.lastSeen = c.opts.Now()

	var rows []models.Detection
	var series []int
	var seq uint64
	if out.InitDashboard {
		rows = c.data.Detections()
		series = c.data.Series()
		seq = c.nextSeqLocked()
		c.startFeedLocked()
	}
	c.mu.Unlock()

	if !target.Known() {
		log.Printf("Session %s navigated to unknown page %q", c.id, target)
	}
	log.Printf("Session %s navigated to %s (requested %s, loggedIn=%t)", c.id, out.State.CurrentPage, target, out.State.IsLoggedIn)

	c.emit(view.Update{Kind: view.KindPage, Page: out.State.CurrentPage, URL: out.URL})
	if out.InitDashboard {
		c.emit(view.Update{Kind: view.KindTable, Rows: rows, Seq: seq})
		c.emit(view.Update{Kind: view.KindSeries, Series: series, Seq: seq})
	}
	c.notify(out.Notices...)
	c.record(ctx, models.EventNavigate, out.State.CurrentPage, string(target))
	return out
}

// Login checks the credentials, marks the session logged in, waits the
// redirect delay and then opens the dashboard.
func (c *Controller) Login(ctx context.Context, username, password string) (Outcome, error) {
	if username == "" || password == "" {
		c.notify(view.Notice{Message: MsgFillAllFields, Kind: view.NoticeError})
		return Outcome{State: c.State()}, ErrMissingCredentials
	}

	if err := c.opts.Authenticator.Authenticate(ctx, username, password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.notify(view.Notice{Message: MsgBadCredentials, Kind: view.NoticeError})
		}
		return Outcome{State: c.State()}, fmt.Errorf("authenticating %s: %w", username, err)
	}

	c.mu.Lock()
	c.state = CompleteLogin(c.state)
	page := c.state.CurrentPage
	c.lastSeen = c.opts.Now()
	c.mu.Unlock()

	log.Printf("Session %s logged in as %s", c.id, username)
	c.notify(view.Notice{Message: MsgLoginSuccess, Kind: view.NoticeSuccess})
	c.record(ctx, models.EventLogin, page, username)

	if err := utils.Sleep(ctx, c.opts.RedirectDelay); err != nil {
		return Outcome{State: c.State()}, err
	}
	return c.Navigate(ctx, models.PageDashboard), nil
}

// Logout clears the login and device flags, clears the dashboard content
// from the rendering and returns to home.
func (c *Controller) Logout(ctx context.Context) Outcome {
	c.mu.Lock()
	out := Logout(c.state)
	c.state = out.State
	c.lastSeen = c.opts.Now()
	seq := c.nextSeqLocked()
	c.mu.Unlock()

	log.Printf("Session %s logged out", c.id)
	c.emit(view.Update{Kind: view.KindTable, Seq: seq})
	c.emit(view.Update{Kind: view.KindSeries, Seq: seq})
	c.emit(view.Update{Kind: view.KindDevice, Device: view.DeviceNotConnected})
	c.emit(view.Update{Kind: view.KindPage, Page: out.State.CurrentPage, URL: out.URL})
	c.notify(out.Notices...)
	c.record(ctx, models.EventLogout, out.State.CurrentPage, "")
	return out
}

// Key handles a keyboard shortcut. ok is false when the key maps to nothing.
func (c *Controller) Key(ctx context.Context, key string, ctrl, meta bool) (Outcome, bool) {
	action := Shortcut(key, ctrl, meta, c.State().IsLoggedIn)
	switch action.Kind {
	case ActionNavigate:
		return c.Navigate(ctx, action.Page), true
	case ActionLogout:
		return c.Logout(ctx), true
	default:
		return Outcome{State: c.State()}, false
	}
}

// Connect pairs the device. Connecting an already paired device is a no-op.
func (c *Controller) Connect(ctx context.Context) (models.SessionState, error) {
	c.mu.Lock()
	if c.pairing {
		c.mu.Unlock()
		return c.State(), ErrPairingInProgress
	}
	if c.state.DeviceConnected {
		s := c.state
		c.mu.Unlock()
		return s, nil
	}
	c.pairing = true
	c.mu.Unlock()

	c.emit(view.Update{Kind: view.KindDevice, Device: view.DeviceConnecting})
	err := c.opts.Connector.Connect(ctx)

	c.mu.Lock()
	c.pairing = false
	if err == nil {
		c.state = SetDevice(c.state, true)
	}
	s := c.state
	c.lastSeen = c.opts.Now()
	c.mu.Unlock()

	if err != nil {
		c.emit(view.Update{Kind: view.KindDevice, Device: view.DeviceNotConnected})
		return s, fmt.Errorf("pairing device: %w", err)
	}

	log.Printf("Session %s paired its device", c.id)
	c.emit(view.Update{Kind: view.KindDevice, Device: view.DeviceConnected})
	c.notify(view.Notice{Message: MsgConnected, Kind: view.NoticeSuccess})
	c.record(ctx, models.EventConnect, s.CurrentPage, "")
	return s, nil
}

// Disconnect unpairs the device.
func (c *Controller) Disconnect(ctx context.Context) (models.SessionState, error) {
	if err := c.opts.Connector.Disconnect(ctx); err != nil {
		return c.State(), fmt.Errorf("unpairing device: %w", err)
	}

	c.mu.Lock()
	c.state = SetDevice(c.state, false)
	s := c.state
	c.lastSeen = c.opts.Now()
	c.mu.Unlock()

	c.emit(view.Update{Kind: view.KindDevice, Device: view.DeviceNotConnected})
	c.notify(view.Notice{Message: MsgDisconnected, Kind: view.NoticeInfo})
	c.record(ctx, models.EventDisconnect, s.CurrentPage, "")
	return s, nil
}

// Tick runs one telemetry update. It only acts while the dashboard is shown
// and the device is connected.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	if c.state.CurrentPage != models.PageDashboard || !c.state.DeviceConnected {
		c.mu.Unlock()
		return
	}
	det := c.opts.Generator.Detection()
	c.data.Prepend(det)
	c.data.Advance(c.opts.Generator.SeriesDelta())
	rows := c.data.Detections()
	series := c.data.Series()
	seq := c.nextSeqLocked()
	c.mu.Unlock()

	c.emit(view.Update{Kind: view.KindSeries, Series: series, Seq: seq})
	c.emit(view.Update{Kind: view.KindTable, Rows: rows, Seq: seq})
	c.notify(view.Notice{
		Message: fmt.Sprintf("New detection: %d %s particles at %s", det.Count, det.Type, det.Location),
		Kind:    view.NoticeSuccess,
	})

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	if err := c.opts.Archive.RecordDetections(actx, c.id, c.opts.Now(), []models.Detection{det}); err != nil {
		log.Printf("Error archiving detection for session %s: %v", c.id, err)
	}
}

// StatusTick occasionally shows a data transfer on a paired device.
func (c *Controller) StatusTick(ctx context.Context) {
	if !c.State().DeviceConnected || !c.opts.Generator.Chance(transferChance) {
		return
	}
	c.emit(view.Update{Kind: view.KindDevice, Device: view.DeviceTransferring})

	if err := utils.Sleep(ctx, c.opts.StatusHold); err != nil {
		return
	}
	if c.State().DeviceConnected {
		c.emit(view.Update{Kind: view.KindDevice, Device: view.DeviceConnected})
	}
}

// Detections returns the current list, or the filtered list when any filter
// field is set. A filtered view with no matches renders the placeholder row.
func (c *Controller) Detections(f models.DetectionFilter) []models.Detection {
	if f == (models.DetectionFilter{}) {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.data.Detections()
	}

	c.mu.Lock()
	rows := telemetry.Apply(c.data.Detections(), f)
	seq := c.nextSeqLocked()
	c.mu.Unlock()

	u := view.Update{Kind: view.KindTable, Rows: rows, Seq: seq}
	if len(rows) == 0 {
		u.Placeholder = telemetry.NoDataMessage
	}
	c.emit(u)
	c.notify(view.Notice{Message: fmt.Sprintf("Showing %d filtered results", len(rows)), Kind: view.NoticeInfo})
	return rows
}

// Charts returns the data behind the dashboard's three widgets.
func (c *Controller) Charts() telemetry.Charts {
	c.mu.Lock()
	series := c.data.Series()
	c.mu.Unlock()
	return telemetry.BuildCharts(series)
}

// Export serializes the in-memory detection list.
func (c *Controller) Export(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	rows := c.data.Detections()
	page := c.state.CurrentPage
	c.mu.Unlock()

	body, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding detections: %w", err)
	}
	c.notify(view.Notice{Message: MsgExported, Kind: view.NoticeSuccess})
	c.record(ctx, models.EventExport, page, fmt.Sprintf("%d records", len(rows)))
	return body, nil
}

// LastSeen is the time of the last state-changing call.
func (c *Controller) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// Touch marks the session as active.
func (c *Controller) Touch() {
	c.mu.Lock()
	c.lastSeen = c.opts.Now()
	c.mu.Unlock()
}

// Close stops the feeds and disconnects every websocket.
func (c *Controller) Close() {
	c.cancel()
	c.hub.Close()
}

// nextSeqLocked stamps a table or series update so that views can drop one
// that arrives after a newer update.
func (c *Controller) nextSeqLocked() uint64 {
	c.seq++
	return c.seq
}

func (c *Controller) startFeedLocked() {
	if c.feedStarted {
		return
	}
	c.feedStarted = true
	feed := &telemetry.Feed{Interval: c.opts.FeedInterval, OnTick: c.Tick}
	go feed.Run(c.ctx)
}

func (c *Controller) emit(u view.Update) {
	u.At = c.opts.Now()
	c.out.Apply(u)
}

func (c *Controller) notify(notices ...view.Notice) {
	for i := range notices {
		n := notices[i]
		c.emit(view.Update{Kind: view.KindNotice, Notice: &n})
	}
}

func (c *Controller) record(ctx context.Context, eventType string, page models.Page, detail string) {
	ev := models.SessionEvent{
		EventID:   uuid.New().String(),
		SessionID: c.id,
		EventType: eventType,
		Page:      page,
		Timestamp: c.opts.Now(),
		Detail:    detail,
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	if err := c.opts.Archive.RecordEvents(actx, []models.SessionEvent{ev}); err != nil {
		log.Printf("Error archiving %s event for session %s: %v", eventType, c.id, err)
	}
}
