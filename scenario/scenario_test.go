package scenario

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/viaems/ecuharness/decoder"
	"github.com/viaems/ecuharness/timing"
	"github.com/viaems/ecuharness/trace"
)

var _ = Describe("Scenario", func() {
	var s *Scenario

	BeforeEach(func() {
		s = New("test", decoder.MakeBuilder().Build())
	})

	It("should only advance the clock when the engine is stopped", func() {
		s.WaitMilliseconds(100)

		Expect(s.Now()).To(Equal(timing.Milliseconds(100)))
		Expect(s.Events()).To(BeEmpty())
	})

	It("should emit triggers at 3000 rpm", func() {
		s.SetRPM(3000)
		s.WaitMilliseconds(500)

		triggers := s.Triggers()
		Expect(triggers).NotTo(BeEmpty())
		Expect(s.Now()).To(Equal(timing.Milliseconds(500)))

		// Cam pulse is 5 degrees from a tooth, the gap is 20 degrees.
		minDelta := timing.TicksForDegrees(3000, 5)
		maxDelta := timing.TicksForDegrees(3000, 20)

		last := timing.ScenarioTime(0)
		for _, t := range triggers {
			Expect(t.Time - last).To(BeNumerically(">=", minDelta))
			Expect(t.Time - last).To(BeNumerically("<=", maxDelta))
			Expect(t.Time).To(BeNumerically("<=", timing.Milliseconds(500)))
			Expect(t.RPM).To(Equal(3000.0))
			last = t.Time
		}

		// 500 ms at 3000 rpm is 12.5 engine cycles.
		Expect(triggers[len(triggers)-1].Cycle).To(Equal(uint64(12)))
	})

	It("should stamp triggers with the angle and cycle of the wheel", func() {
		s.SetRPM(6000)
		s.WaitMilliseconds(1)

		triggers := s.Triggers()
		Expect(triggers).To(HaveLen(3))
		Expect(triggers[0]).To(Equal(trace.ToothEvent{
			Time:    1111,
			Trigger: decoder.CrankChannel,
			Angle:   10,
			RPM:     6000,
			Cycle:   0,
		}))
		Expect(triggers[2].Angle).To(Equal(30.0))
	})

	It("should emit the first trigger immediately after starting", func() {
		s.WaitMilliseconds(100)
		s.SetRPM(1000)
		s.WaitMilliseconds(1)

		triggers := s.Triggers()
		Expect(triggers).NotTo(BeEmpty())
		Expect(triggers[0].Time).To(Equal(timing.Milliseconds(100)))
	})

	It("should snapshot analog inputs when they are set", func() {
		s.WaitMilliseconds(2)
		s.SetBRV(12.25)
		s.SetMAP(420)

		events := s.Events()
		Expect(events).To(HaveLen(2))

		first := events[0].(trace.ADCEvent)
		Expect(first.Time).To(Equal(timing.Milliseconds(2)))
		Expect(first.Values[BRVChannel]).To(Equal(2.5))
		Expect(first.Values[MAPChannel]).To(Equal(0.0))

		second := events[1].(trace.ADCEvent)
		Expect(second.Values[BRVChannel]).To(Equal(2.5))
		Expect(second.Values[MAPChannel]).To(Equal(5.0))
	})

	It("should sample analog inputs periodically when asked to", func() {
		s = New("sampled", decoder.MakeBuilder().Build(),
			WithADCSampleRate(5*timing.KHz))
		s.WaitMilliseconds(1)

		adcs := trace.Events[trace.ADCEvent](s.Log())
		Expect(adcs).To(HaveLen(5))
		Expect(adcs[0].Time).To(Equal(timing.ScenarioTime(800)))
		Expect(adcs[4].Time).To(Equal(timing.ScenarioTime(4000)))
	})

	It("should return the time of a mark", func() {
		s.SetRPM(3000)
		s.WaitMilliseconds(10)
		t := s.Mark("steady")

		Expect(t).To(Equal(s.Now()))

		at, ok := s.Log().MarkTime("steady")
		Expect(ok).To(BeTrue())
		Expect(at).To(Equal(t))
	})

	It("should wait for a given engine cycle", func() {
		s.SetRPM(3000)
		Expect(s.WaitUntilCycle(2)).To(Succeed())

		last := s.Triggers()[len(s.Triggers())-1]
		Expect(last.Cycle).To(Equal(uint64(2)))
		Expect(last.Angle).To(Equal(0.0))
	})

	It("should refuse to wait for a cycle at zero speed", func() {
		Expect(s.WaitUntilCycle(1)).To(MatchError(ErrStalled))
	})

	It("should end after the default delay", func() {
		s.WaitMilliseconds(1)
		s.End(0)

		events := s.Events()
		Expect(events[len(events)-1]).To(Equal(trace.EndEvent{
			Time: timing.Milliseconds(1) + DefaultEndDelay,
		}))
		Expect(s.Ended()).To(BeTrue())
	})

	It("should not advance after the end", func() {
		s.End(0)

		Expect(func() { s.WaitMilliseconds(1) }).To(Panic())
		Expect(func() { s.SetRPM(100) }).To(Panic())
		Expect(func() { s.End(0) }).To(Panic())
	})

	It("should be deterministic", func() {
		build := func() []trace.Event {
			sc := New("det", decoder.MakeBuilder().Build())
			sc.SetBRV(14)
			sc.SetRPM(800)
			sc.WaitMilliseconds(50)
			sc.SetRPM(2500)
			sc.WaitMilliseconds(50)
			sc.End(0)
			return sc.Events()
		}

		Expect(build()).To(Equal(build()))
	})
})
