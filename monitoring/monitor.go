// Package monitoring serves the results of harness runs over HTTP so that
// firings, logs and verdicts can be inspected while a campaign runs.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/viaems/ecuharness/harness"
	"github.com/viaems/ecuharness/scenario"
	"github.com/viaems/ecuharness/timing"
	"github.com/viaems/ecuharness/trace"
)

// Monitor keeps the runs of a campaign and serves them.
type Monitor struct {
	portNumber int
	server     *http.Server
	url        string

	lock         sync.Mutex
	runs         []*harness.Result
	scenarios    map[string]*scenario.Scenario
	progressBars []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{scenarios: make(map[string]*scenario.Scenario)}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterRun makes a run and the scenario that produced it available.
func (m *Monitor) RegisterRun(res *harness.Result, s *scenario.Scenario) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.runs = append(m.runs, res)
	m.scenarios[res.RunID] = s
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the page.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.lock.Lock()
	defer m.lock.Unlock()

	bars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			bars = append(bars, b)
		}
	}

	m.progressBars = bars
}

// Router returns the routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/runs", m.listRuns)
	r.HandleFunc("/api/run/{id}/verdict", m.verdict)
	r.HandleFunc("/api/run/{id}/firings", m.firings)
	r.HandleFunc("/api/run/{id}/log", m.logRecords)
	r.HandleFunc("/api/run/{id}/scenario", m.scenarioState)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts serving on the configured port, or on a random one, and
// returns the address to browse.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.url = fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring runs with %s\n", m.url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != http.ErrServerClosed {
			dieOnErr(err)
		}
	}()

	return m.url
}

// OpenInBrowser shows the run list in the default browser.
func (m *Monitor) OpenInBrowser() error {
	if m.url == "" {
		return fmt.Errorf("monitoring: server not started")
	}

	return browser.OpenURL(m.url + "/api/runs")
}

// StopServer shuts the server down.
func (m *Monitor) StopServer() {
	if m.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	dieOnErr(m.server.Shutdown(ctx))
}

type runRsp struct {
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`
	Passed   bool   `json:"passed"`
	Reason   string `json:"reason,omitempty"`
}

func toRunRsp(res *harness.Result) runRsp {
	return runRsp{
		RunID:    res.RunID,
		Scenario: res.Scenario,
		Passed:   res.Verdict.Passed,
		Reason:   res.Verdict.Reason,
	}
}

func (m *Monitor) listRuns(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	rsp := make([]runRsp, 0, len(m.runs))
	for _, res := range m.runs {
		rsp = append(rsp, toRunRsp(res))
	}
	m.lock.Unlock()

	writeJSON(w, rsp)
}

func (m *Monitor) verdict(w http.ResponseWriter, r *http.Request) {
	res := m.findRunOr404(w, r)
	if res == nil {
		return
	}

	writeJSON(w, toRunRsp(res))
}

type firingRsp struct {
	Time       int64   `json:"time"`
	Pin        int     `json:"pin"`
	DurationUS float64 `json:"duration_us"`
	EndAngle   float64 `json:"end_angle"`
	Advance    float64 `json:"advance"`
	Cycle      uint64  `json:"cycle"`
	Kind       string  `json:"kind,omitempty"`
	Nominal    float64 `json:"nominal,omitempty"`
}

func (m *Monitor) firings(w http.ResponseWriter, r *http.Request) {
	res := m.findRunOr404(w, r)
	if res == nil {
		return
	}

	pin, err := optionalInt(r, "pin")
	if err != nil {
		badRequest(w, err)
		return
	}

	rsp := []firingRsp{}
	for _, f := range trace.Events[trace.FiringEvent](res.Log) {
		if pin >= 0 && f.Pin != pin {
			continue
		}

		item := firingRsp{
			Time:       int64(f.Time),
			Pin:        f.Pin,
			DurationUS: f.DurationUS,
			EndAngle:   f.EndAngle,
			Advance:    f.Advance,
			Cycle:      f.Cycle,
		}

		if f.Resolved() {
			item.Kind = f.Config.Kind.String()
			item.Nominal = f.Config.Angle
		}

		rsp = append(rsp, item)
	}

	writeJSON(w, rsp)
}

type recordRsp struct {
	Time  int64       `json:"time"`
	Kind  string      `json:"kind"`
	Event trace.Event `json:"event"`
}

func (m *Monitor) logRecords(w http.ResponseWriter, r *http.Request) {
	res := m.findRunOr404(w, r)
	if res == nil {
		return
	}

	l := res.Log

	from, err := optionalInt(r, "from")
	if err != nil {
		badRequest(w, err)
		return
	}

	to, err := optionalInt(r, "to")
	if err != nil {
		badRequest(w, err)
		return
	}

	if from >= 0 || to >= 0 {
		if to < 0 {
			to = int(^uint(0) >> 1)
		}
		l = l.Between(timing.ScenarioTime(max(from, 0)), timing.ScenarioTime(to))
	}

	if kind := r.URL.Query().Get("kind"); kind != "" {
		l = l.Filter(func(rec trace.Record) bool {
			return trace.Kind(rec.Event) == kind
		})
	}

	rsp := make([]recordRsp, 0, len(l))
	for rec := range l.All() {
		rsp = append(rsp, recordRsp{
			Time:  int64(rec.Time),
			Kind:  trace.Kind(rec.Event),
			Event: rec.Event,
		})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) scenarioState(w http.ResponseWriter, r *http.Request) {
	res := m.findRunOr404(w, r)
	if res == nil {
		return
	}

	m.lock.Lock()
	s := m.scenarios[res.RunID]
	m.lock.Unlock()

	if s == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Scenario not found"))
		dieOnErr(err)

		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(s)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) findRunOr404(w http.ResponseWriter, r *http.Request) *harness.Result {
	id := mux.Vars(r)["id"]

	m.lock.Lock()
	defer m.lock.Unlock()

	for _, res := range m.runs {
		if res.RunID == id {
			return res
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Run not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	writeJSON(w, m.progressBars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

// optionalInt reads a non-negative query parameter, returning -1 if absent.
func optionalInt(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return -1, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, s)
	}

	return v, nil
}

func badRequest(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintf(w, "Error: %s", err)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(data)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
