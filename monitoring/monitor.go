// Package monitoring turns a power-gating run into a web server that reports
// the controllers and accepts requests from external clients.
package monitoring

import (
	"bytes"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/sugawarayuuta/sonnet"
	"github.com/syifan/goseth"

	"github.com/sarchlab/lpwr/pg"
	"github.com/sarchlab/lpwr/pgtrace"
	"github.com/sarchlab/lpwr/sim"
)

// Tracer is a tracer that can be switched on and off from the monitor.
type Tracer interface {
	StartTracing()
	StopTracing()
	IsTracing() bool
}

// Monitor can turn a simulation into a server and allows external monitoring
// and controlling of the power-gating controllers.
type Monitor struct {
	engine     sim.Engine
	ctrls      *pg.Registry
	residency  *pgtrace.ResidencyTracer
	tracer     Tracer
	portNumber int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
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

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e sim.Engine) {
	m.engine = e
}

// RegisterRegistry registers the controllers to monitor.
func (m *Monitor) RegisterRegistry(r *pg.Registry) {
	m.ctrls = r
}

// RegisterResidencyTracer sets the tracer that reports the state residency.
func (m *Monitor) RegisterResidencyTracer(t *pgtrace.ResidencyTracer) {
	m.residency = t
}

// RegisterTracer sets the tracer that the monitor can start and stop.
func (m *Monitor) RegisterTracer(t Tracer) {
	m.tracer = t
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/ctrls", m.listCtrls)
	r.HandleFunc("/api/ctrl/{id}", m.ctrlDetails)
	r.HandleFunc("/api/ctrl/{id}/residency", m.ctrlResidency)
	r.HandleFunc("/api/ctrl/{id}/{action}", m.ctrlAction).
		Methods(http.MethodPost)
	r.HandleFunc("/api/field/{id}/{field}", m.listFieldValue)
	r.HandleFunc("/api/trace/{action}", m.traceAction).
		Methods(http.MethodPost)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() int {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port
	fmt.Fprintf(
		os.Stderr,
		"Monitoring simulation with http://localhost:%d\n",
		port)

	router := m.Router()
	go func() {
		err := http.Serve(listener, router)
		dieOnErr(err)
	}()

	return port
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	now := m.engine.CurrentTime()
	fmt.Fprintf(w, "{\"now\":%.10f}", now)
}

func (m *Monitor) listCtrls(w http.ResponseWriter, _ *http.Request) {
	ids := m.ctrls.CtrlIDs()
	views := make([]pg.CtrlView, 0, len(ids))

	for _, id := range ids {
		v, err := m.ctrls.View(id)
		dieOnErr(err)

		views = append(views, v)
	}

	writeJSON(w, views)
}

func (m *Monitor) ctrlDetails(w http.ResponseWriter, r *http.Request) {
	view, ok := m.findCtrlOr404(w, r)
	if !ok {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&view)
	serializer.SetMaxDepth(2)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	view, ok := m.findCtrlOr404(w, r)
	if !ok {
		return
	}

	fields := strings.Split(mux.Vars(r)["field"], ".")

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&view)
	serializer.SetMaxDepth(1)

	err := serializer.SetEntryPoint(fields)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

type residencyRsp struct {
	Now           float64            `json:"now"`
	GatedFraction float64            `json:"gated_fraction"`
	Entries       int                `json:"entries"`
	Residency     map[string]float64 `json:"residency"`
}

func (m *Monitor) ctrlResidency(w http.ResponseWriter, r *http.Request) {
	view, ok := m.findCtrlOr404(w, r)
	if !ok {
		return
	}

	if m.residency == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Residency is not traced"))
		dieOnErr(err)

		return
	}

	now := m.engine.CurrentTime()
	rsp := residencyRsp{
		Now:           float64(now),
		GatedFraction: m.residency.GatedFraction(view.ID, now),
		Entries:       m.residency.Entries(view.ID),
		Residency:     make(map[string]float64),
	}

	for st, d := range m.residency.Residency(view.ID, now) {
		rsp.Residency[st.String()] = float64(d)
	}

	writeJSON(w, rsp)
}

// ctrlAction forwards a client request to the task. The request is only
// accepted here; it takes effect when the task runs it.
func (m *Monitor) ctrlAction(w http.ResponseWriter, r *http.Request) {
	view, ok := m.findCtrlOr404(w, r)
	if !ok {
		return
	}

	id := view.ID
	action := mux.Vars(r)["action"]

	var fn func() error
	switch action {
	case "wake":
		fn = func() error { return m.ctrls.WakeExt(id) }
	case "disallow", "allow":
		reasons, err := parseReasons(r.URL.Query().Get("reason"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Error: %s", err)

			return
		}

		if action == "disallow" {
			fn = func() error {
				_, err := m.ctrls.Disallow(id, reasons)
				return err
			}
		} else {
			fn = func() error { return m.ctrls.Allow(id, reasons) }
		}
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "Unknown action %s", action)

		return
	}

	m.ctrls.Request(func() {
		if err := fn(); err != nil {
			log.Printf("monitor: %s on ctrl %d failed: %v", action, id, err)
		}
	})

	w.WriteHeader(http.StatusAccepted)
}

// parseReasons parses a list of reason names separated by '|', such as
// "RM|PERF". An empty list stands for PERF.
func parseReasons(s string) (pg.ReasonMask, error) {
	if s == "" {
		return pg.ReasonPerf, nil
	}

	var mask pg.ReasonMask
	for _, name := range strings.Split(s, "|") {
		reason, err := pg.ParseReason(name)
		if err != nil {
			return 0, err
		}

		mask |= reason
	}

	return mask, nil
}

func (m *Monitor) traceAction(w http.ResponseWriter, r *http.Request) {
	if m.tracer == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("No tracer registered"))
		dieOnErr(err)

		return
	}

	switch mux.Vars(r)["action"] {
	case "start":
		m.tracer.StartTracing()
	case "stop":
		m.tracer.StopTracing()
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	fmt.Fprintf(w, "{\"tracing\":%t}", m.tracer.IsTracing())
}

func (m *Monitor) findCtrlOr404(
	w http.ResponseWriter,
	r *http.Request,
) (pg.CtrlView, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err == nil && id >= 0 && id < pg.MaxCtrls {
		view, err := m.ctrls.View(pg.CtrlID(id))
		if err == nil {
			return view, true
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err = w.Write([]byte("Controller not found"))
	dieOnErr(err)

	return pg.CtrlView{}, false
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}

	writeJSON(w, bars)
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

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	writeJSON(w, rsp)
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

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := sonnet.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
