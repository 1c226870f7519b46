package observer

import (
	"context"
	"math"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/dynamo"
	"github.com/san-kum/cellsim/internal/engine"
	"github.com/san-kum/cellsim/internal/metrics"
)

func TestObserverSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Observer Suite")
}

// makeTrace is the suite's ground-truth generator: a cell with the given
// parameters discharged at constant current, sampled once per second.
func makeTrace(truth *battery.Params, initialSOC, current float64, n int) ([]dynamo.Measurement, []float64) {
	eng := engine.New(truth, nil)
	s := battery.NewCellState(truth, initialSOC, 25.0)

	samples := make([]dynamo.Measurement, 0, n)
	socs := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		ns, out, err := eng.Step(s, current, ambientK, 1.0)
		Expect(err).NotTo(HaveOccurred())
		s = ns
		samples = append(samples, dynamo.Measurement{
			Time:    float64(i + 1),
			Current: current,
			Voltage: out.Voltage,
		})
		socs = append(socs, out.SOC)
	}
	return samples, socs
}

// makePulsedTrace alternates the discharge between two levels, holding each
// for holdSec seconds. Two distinct current levels make the SOC and
// resistance errors separately visible in the voltage.
func makePulsedTrace(truth *battery.Params, initialSOC, high, low float64, holdSec, n int) ([]dynamo.Measurement, []float64) {
	eng := engine.New(truth, nil)
	s := battery.NewCellState(truth, initialSOC, 25.0)

	samples := make([]dynamo.Measurement, 0, n)
	socs := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		current := high
		if (i/holdSec)%2 == 1 {
			current = low
		}
		ns, out, err := eng.Step(s, current, ambientK, 1.0)
		Expect(err).NotTo(HaveOccurred())
		s = ns
		samples = append(samples, dynamo.Measurement{
			Time:    float64(i + 1),
			Current: current,
			Voltage: out.Voltage,
		})
		socs = append(socs, out.SOC)
	}
	return samples, socs
}

var _ = Describe("fast loop", func() {
	runWithGain := func(fastGain float64) (*dynamo.Result, []float64) {
		truth := battery.DefaultParams()
		samples, socs := makeTrace(truth, 0.80, 1.0, 1000)

		p := battery.DefaultParams()
		g := DefaultGains()
		g.FastGain = fastGain
		g.LearnRate = 0

		obs, err := New(engine.New(p, nil), battery.NewCellState(p, 0.95, 25.0), g)
		Expect(err).NotTo(HaveOccurred())

		result, err := obs.Run(context.Background(), samples, dynamo.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		return result, socs
	}

	It("pulls a wrong initial SOC onto the true trajectory", func() {
		result, socs := runWithGain(DefaultGains().FastGain)

		last := result.Records[len(result.Records)-1]
		Expect(last.SOC).To(BeNumerically("~", socs[len(socs)-1], 0.01))
	})

	It("converges for a range of gains", func() {
		for _, gain := range []float64{0.01, 0.02, 0.05} {
			result, socs := runWithGain(gain)
			last := result.Records[len(result.Records)-1]
			Expect(last.SOC).To(BeNumerically("~", socs[len(socs)-1], 0.02),
				"gain %.3f failed to converge", gain)
		}
	})

	It("shrinks the voltage residual over the run", func() {
		result, _ := runWithGain(DefaultGains().FastGain)

		windows := metrics.MovingRMSE(result.Records, 200)
		Expect(len(windows)).To(BeNumerically(">=", 4))
		Expect(windows[len(windows)-1]).To(BeNumerically("<", windows[0]))
	})

	It("leaves the estimate alone at rest", func() {
		p := battery.DefaultParams()
		obs, err := New(engine.New(p, nil), battery.NewCellState(p, 0.7, 25.0), DefaultGains())
		Expect(err).NotTo(HaveOccurred())

		before := obs.State().SOC(p)
		for i := 0; i < 50; i++ {
			m := dynamo.Measurement{Time: float64(i + 1), Current: 0.0, Voltage: 4.5}
			_, err := obs.Update(m, ambientK, 1.0)
			Expect(err).NotTo(HaveOccurred())
		}

		// Only diffusion and cooling move the state at rest; the bogus
		// voltage must not.
		Expect(obs.State().SOC(p)).To(BeNumerically("~", before, 1e-6))
	})
})

var _ = Describe("slow loop", func() {
	It("identifies a higher true base resistance", func() {
		truth := battery.DefaultParams()
		truth.RBase = 0.30
		samples, _ := makeTrace(truth, 0.90, 1.0, 3600)

		p := battery.DefaultParams() // starts at the nominal 0.202 ohm
		g := DefaultGains()
		g.FastGain = 0   // isolate resistance learning
		g.LearnRate = 2e-3

		obs, err := New(engine.New(p, nil), battery.NewCellState(p, 0.90, 25.0), g)
		Expect(err).NotTo(HaveOccurred())

		_, err = obs.Run(context.Background(), samples, dynamo.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		Expect(p.RBase).To(BeNumerically("~", truth.RBase, 0.01))
		Expect(obs.Warnings()).To(BeEmpty())
	})

	It("identifies a lower true base resistance", func() {
		truth := battery.DefaultParams()
		truth.RBase = 0.12
		samples, _ := makeTrace(truth, 0.90, 1.0, 3600)

		p := battery.DefaultParams()
		g := DefaultGains()
		g.FastGain = 0
		g.LearnRate = 2e-3

		obs, err := New(engine.New(p, nil), battery.NewCellState(p, 0.90, 25.0), g)
		Expect(err).NotTo(HaveOccurred())

		_, err = obs.Run(context.Background(), samples, dynamo.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		Expect(p.RBase).To(BeNumerically("~", truth.RBase, 0.01))
	})
})

var _ = Describe("both loops together", func() {
	It("tracks a cell with wrong SOC and wrong resistance under a varying load", func() {
		truth := battery.DefaultParams()
		truth.RBase = 0.28
		samples, socs := makePulsedTrace(truth, 0.85, 2.5, 0.6, 90, 3000)

		p := battery.DefaultParams()
		g := DefaultGains()
		g.LearnRate = 1e-3

		obs, err := New(engine.New(p, nil), battery.NewCellState(p, 0.95, 25.0), g)
		Expect(err).NotTo(HaveOccurred())

		result, err := obs.Run(context.Background(), samples, dynamo.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		n := len(result.Records)
		Expect(n).To(Equal(len(samples)))

		// Steady-state tracking: judge the tail, not the transient.
		tailErr := math.Abs(result.Records[n-1].SOC - socs[n-1])
		Expect(tailErr).To(BeNumerically("<", 0.02))

		Expect(p.RBase).To(BeNumerically("~", truth.RBase, 0.02))

		rmse := metrics.VoltageRMSE(result.Records[n/2:])
		Expect(rmse).To(BeNumerically("<", 0.01))
		Expect(obs.Warnings()).To(BeEmpty())
	})

	It("nulls the residual without separating SOC from resistance at constant current", func() {
		truth := battery.DefaultParams()
		truth.RBase = 0.28
		samples, socs := makeTrace(truth, 0.85, 1.0, 3600)

		p := battery.DefaultParams()
		g := DefaultGains()
		g.LearnRate = 1e-3

		obs, err := New(engine.New(p, nil), battery.NewCellState(p, 0.95, 25.0), g)
		Expect(err).NotTo(HaveOccurred())

		result, err := obs.Run(context.Background(), samples, dynamo.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		n := len(result.Records)
		rmse := metrics.VoltageRMSE(result.Records[n/2:])
		Expect(rmse).To(BeNumerically("<", 0.01))

		// With one current level the two errors compensate each other in the
		// voltage: the fast loop absorbs the resistance mismatch into a SOC
		// bias and the slow loop is left without a gradient. A small residual
		// therefore does not certify the SOC here.
		tailErr := math.Abs(result.Records[n-1].SOC - socs[n-1])
		Expect(tailErr).To(BeNumerically(">", 0.01))
		Expect(math.Abs(p.RBase-truth.RBase)).To(BeNumerically(">", 0.01))
	})
})
