// Package viz is the live terminal view: a discharge running in real
// (accelerated) time with voltage and temperature charts, a charge bar, and
// interactive cell parameter tuning.
package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/dynamo"
	"github.com/san-kum/cellsim/internal/engine"
)

const (
	historyCapacity = 600
	stepsPerTick    = 10 // simulated seconds per frame
)

type TickMsg time.Time

// Model drives one cell through a load profile frame by frame.
type Model struct {
	eng      *engine.Engine
	load     dynamo.Load
	state    battery.CellState
	initial  battery.CellState
	ambientK float64

	t       float64
	voltage float64
	out     engine.StepOutput
	running bool
	failed  error

	voltageHist []float64
	tempHist    []float64

	paramKeys []string
	initialP  map[string]float64
	selected  int
}

func NewModel(eng *engine.Engine, load dynamo.Load, initial battery.CellState, ambientC float64) Model {
	params := eng.Params().GetParams()
	keys := make([]string, 0, len(params))
	initialP := make(map[string]float64, len(params))
	for k, v := range params {
		keys = append(keys, k)
		initialP[k] = v
	}
	sort.Strings(keys)

	return Model{
		eng:         eng,
		load:        load,
		state:       initial,
		initial:     initial,
		ambientK:    ambientC + 273.15,
		voltage:     eng.Cell().Voltage(initial, 0),
		running:     true,
		voltageHist: make([]float64, 0, historyCapacity),
		tempHist:    make([]float64, 0, historyCapacity),
		paramKeys:   keys,
		initialP:    initialP,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		}
	case TickMsg:
		if m.running && m.failed == nil {
			for i := 0; i < stepsPerTick; i++ {
				if !m.step() {
					break
				}
			}
		}
		return m, tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

// step advances one simulated second. Returns false when the run is over.
func (m *Model) step() bool {
	current := m.load.Current(m.voltage, m.t)
	ns, out, err := m.eng.Step(m.state, current, m.ambientK, 1.0)
	if err != nil {
		m.failed = err
		m.running = false
		return false
	}

	m.state = ns
	m.out = out
	m.voltage = out.Voltage
	m.t += 1.0

	m.voltageHist = append(m.voltageHist, out.Voltage)
	if len(m.voltageHist) > historyCapacity {
		m.voltageHist = m.voltageHist[1:]
	}
	m.tempHist = append(m.tempHist, ns.TempK-273.15)
	if len(m.tempHist) > historyCapacity {
		m.tempHist = m.tempHist[1:]
	}

	if out.SOC <= 0 || out.Voltage <= m.eng.Params().VCutoff {
		m.running = false
		return false
	}
	return true
}

func (m *Model) reset() {
	m.state = m.initial
	m.t = 0
	m.failed = nil
	m.voltage = m.eng.Cell().Voltage(m.initial, 0)
	m.out = engine.StepOutput{}
	m.voltageHist = m.voltageHist[:0]
	m.tempHist = m.tempHist[:0]
	for k, v := range m.initialP {
		m.eng.Params().SetParam(k, v)
	}
	m.running = true
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	params := m.eng.Params().GetParams()
	m.eng.Params().SetParam(key, params[key]*factor)
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("CELL DISCHARGE") + "\n")

	status := "RUNNING"
	if m.failed != nil {
		status = warnStyle.Render("FAILED: " + m.failed.Error())
	} else if !m.running {
		if m.out.SOC <= 0 || (m.t > 0 && m.voltage <= m.eng.Params().VCutoff) {
			status = "DEPLETED"
		} else {
			status = "PAUSED"
		}
	}
	s.WriteString(status + "\n\n")

	if len(m.voltageHist) > 1 {
		chart := asciigraph.Plot(m.voltageHist,
			asciigraph.Height(6), asciigraph.Width(48), asciigraph.Caption("Terminal voltage (V)"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}
	if len(m.tempHist) > 1 {
		chart := asciigraph.Plot(m.tempHist,
			asciigraph.Height(4), asciigraph.Width(48), asciigraph.Caption("Cell temperature (°C)"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	p := m.eng.Params()
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.0fs", m.t)) + "\n")
	s.WriteString(labelStyle.Render("Voltage") + valueStyle.Render(fmt.Sprintf("%.3f V", m.voltage)) + "\n")
	s.WriteString(labelStyle.Render("SOC") + SOCBar(m.out.SOC, 20) + valueStyle.Render(fmt.Sprintf(" %5.1f%%", m.out.SOC*100)) + "\n")
	s.WriteString(labelStyle.Render("Temperature") + valueStyle.Render(fmt.Sprintf("%.2f °C", m.state.TempK-273.15)) + "\n")
	s.WriteString(labelStyle.Render("Resistance") + valueStyle.Render(fmt.Sprintf("%.4f Ω", m.out.RTotal)) + "\n")
	s.WriteString(labelStyle.Render("Energy") + valueStyle.Render(fmt.Sprintf("%.2f Wh", m.eng.Cell().Energy(m.state.Vector())/3600.0)) + "\n")
	s.WriteString(labelStyle.Render("Health") + valueStyle.Render(fmt.Sprintf("%.2f%%", m.state.SOH(p)*100)) + "\n")

	s.WriteString("\nPARAMETERS\n")
	params := p.GetParams()
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-12s %.5f", k, params[k])
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}

	s.WriteString(helpStyle.Render("SP:Pause R:Reset Q:Quit Tab:Param ↑↓:Tune"))
	return panelStyle.Render(s.String())
}

// Run starts the interactive view and blocks until the user quits.
func Run(eng *engine.Engine, load dynamo.Load, initial battery.CellState, ambientC float64) error {
	prog := tea.NewProgram(NewModel(eng, load, initial, ambientC), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
