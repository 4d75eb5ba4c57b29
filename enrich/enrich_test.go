package enrich

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/viaems/ecuharness/outputs"
	"github.com/viaems/ecuharness/timing"
	"github.com/viaems/ecuharness/trace"
)

func tooth(t timing.ScenarioTime, angle float64, cycle uint64) trace.Record {
	return trace.Record{Time: t, Event: trace.ToothEvent{
		Time:  t,
		Angle: angle,
		RPM:   3000,
		Cycle: cycle,
	}}
}

func output(t timing.ScenarioTime, mask uint16) trace.Record {
	return trace.Record{Time: t, Event: trace.TargetOutputEvent{
		Time:    timing.TargetTime(t),
		Outputs: mask,
	}}
}

func captureOutput(t timing.ScenarioTime, mask uint16) trace.Record {
	return trace.Record{Time: t, Event: trace.CaptureOutputEvent{
		Time:    timing.CaptureTime(t),
		Outputs: mask,
	}}
}

var _ = Describe("Enricher", func() {
	var enricher *Enricher

	BeforeEach(func() {
		enricher = New(outputs.Default())
	})

	It("should derive a fuel firing from a rise and a fall", func() {
		in := trace.Log{
			tooth(10000, 680, 1),
			output(10444, 1<<8),
			output(14444, 0),
		}

		out, err := enricher.Enrich(in)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(4))

		firings := trace.Events[trace.FiringEvent](out)
		Expect(firings).To(HaveLen(1))

		f := firings[0]
		Expect(f.Pin).To(Equal(8))
		Expect(f.Time).To(Equal(timing.ScenarioTime(14444)))
		Expect(f.RiseTime).To(Equal(timing.ScenarioTime(10444)))
		Expect(f.DurationUS).To(Equal(1000.0))
		Expect(f.EndAngle).To(BeNumerically("~", 700, 0.01))
		Expect(f.Cycle).To(Equal(uint64(1)))
		Expect(f.Resolved()).To(BeTrue())
		Expect(f.Config.Kind).To(Equal(outputs.Fuel))
		Expect(f.Advance).To(BeNumerically("~", 0, 0.01))
	})

	It("should report ignition advance as degrees before nominal", func() {
		in := trace.Log{
			tooth(0, 340, 2),
			output(100, 1),
			output(2222, 0),
		}

		out, err := enricher.Enrich(in)
		Expect(err).NotTo(HaveOccurred())

		f := trace.Events[trace.FiringEvent](out)[0]
		Expect(f.EndAngle).To(BeNumerically("~", 350, 0.01))
		Expect(f.Config.Angle).To(Equal(360.0))
		Expect(f.Advance).To(BeNumerically("~", 10, 0.01))
	})

	It("should leave unexplained firings unresolved", func() {
		in := trace.Log{
			tooth(0, 0, 1),
			output(10, 1<<5),
			output(20, 0),
		}

		out, err := enricher.Enrich(in)
		Expect(err).NotTo(HaveOccurred())

		f := trace.Events[trace.FiringEvent](out)[0]
		Expect(f.Resolved()).To(BeFalse())
		Expect(f.Pin).To(Equal(5))
	})

	It("should emit one firing per falling pin", func() {
		in := trace.Log{
			tooth(0, 0, 1),
			output(10, 0x0101),
			output(20, 0x0100),
			output(30, 0x0000),
		}

		out, err := enricher.Enrich(in)
		Expect(err).NotTo(HaveOccurred())

		firings := trace.Events[trace.FiringEvent](out)
		Expect(firings).To(HaveLen(2))
		Expect(firings[0].Pin).To(Equal(0))
		Expect(firings[0].DurationUS).To(Equal(2.5))
		Expect(firings[1].Pin).To(Equal(8))
		Expect(firings[1].DurationUS).To(Equal(5.0))
	})

	It("should fail when an output changes before any trigger", func() {
		_, err := enricher.Enrich(trace.Log{
			output(5, 0),
			output(10, 1),
			tooth(20, 0, 1),
		})

		Expect(err).To(MatchError(ErrOutputBeforeTrigger))
	})

	It("should only enrich outputs of the selected domain", func() {
		in := trace.Log{
			tooth(0, 0, 1),
			output(10, 1),
			captureOutput(12, 1),
			output(20, 0),
			captureOutput(22, 0),
		}

		out, err := enricher.Enrich(in)
		Expect(err).NotTo(HaveOccurred())
		firings := trace.Events[trace.FiringEvent](out)
		Expect(firings).To(HaveLen(1))
		Expect(firings[0].RiseTime).To(Equal(timing.ScenarioTime(10)))

		out, err = New(outputs.Default(), WithOutputDomain(timing.CaptureDomain)).Enrich(in)
		Expect(err).NotTo(HaveOccurred())
		firings = trace.Events[trace.FiringEvent](out)
		Expect(firings).To(HaveLen(1))
		Expect(firings[0].RiseTime).To(Equal(timing.ScenarioTime(12)))
	})

	It("should give the same result every time", func() {
		in := trace.Log{
			tooth(0, 0, 1),
			output(10, 1),
			output(20, 0),
			tooth(30, 10, 1),
			output(40, 2),
			output(50, 0),
		}

		first, err := enricher.Enrich(in)
		Expect(err).NotTo(HaveOccurred())
		second, err := enricher.Enrich(in)
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(Equal(first))
		Expect(in).To(HaveLen(6))
	})

	It("should reject logs out of time order", func() {
		_, err := enricher.Enrich(trace.Log{tooth(10, 0, 1), tooth(5, 10, 1)})
		Expect(err).To(MatchError(ErrUnordered))
	})

	It("should reject logs that are already enriched", func() {
		in := trace.Log{tooth(0, 0, 1), output(10, 1), output(20, 0)}
		out, err := enricher.Enrich(in)
		Expect(err).NotTo(HaveOccurred())

		_, err = enricher.Enrich(out)
		Expect(err).To(MatchError(ErrAlreadyEnriched))
	})
})
