package harness

import (
	"context"
	"database/sql"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/viaems/ecuharness/align"
	"github.com/viaems/ecuharness/decoder"
	"github.com/viaems/ecuharness/outputs"
	"github.com/viaems/ecuharness/recording"
	"github.com/viaems/ecuharness/scenario"
	"github.com/viaems/ecuharness/target"
	"github.com/viaems/ecuharness/target/simecu"
	"github.com/viaems/ecuharness/timing"
	"github.com/viaems/ecuharness/trace"
	"github.com/viaems/ecuharness/validate"
)

func steadyScenario() *scenario.Scenario {
	s := scenario.New("steady 3000", decoder.MakeBuilder().WithToothCount(36).Build())
	s.SetBRV(14)
	s.SetRPM(3000)
	Expect(s.WaitUntilCycle(4)).To(Succeed())
	s.End(0)

	return s
}

func withoutFiring(l trace.Log, cycle uint64) trace.Log {
	out := make(trace.Log, 0, len(l))
	removed := false

	for _, r := range l {
		if f, ok := r.Event.(trace.FiringEvent); ok && f.Cycle == cycle && !removed {
			removed = true
			continue
		}

		out = append(out, r)
	}

	Expect(removed).To(BeTrue())

	return out
}

var _ = Describe("Harness", func() {
	var (
		mockCtrl *gomock.Controller
		h        *Harness
		s        *scenario.Scenario
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		h = MakeBuilder().Build()
		s = steadyScenario()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should pass a target that follows the schedule", func() {
		res, err := h.Run(context.Background(), s, simecu.MakeBuilder().Build())

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Verdict).To(Equal(validate.Pass()))
		Expect(res.RunID).NotTo(BeEmpty())
		Expect(res.Scenario).To(Equal("steady 3000"))
		Expect(res.Log.Firings()).To(HaveLen(4 * outputs.Default().Len()))
	})

	It("should fail when a firing is missing mid-run", func() {
		res, err := h.Run(context.Background(), s, simecu.MakeBuilder().Build())
		Expect(err).NotTo(HaveOccurred())

		verdict, err := validate.ValidateOutputs(withoutFiring(res.Log, 2), outputs.Default())

		Expect(err).NotTo(HaveOccurred())
		Expect(verdict.Passed).To(BeFalse())
		Expect(verdict.Reason).To(ContainSubstring("cycle 2 missing outputs"))
	})

	It("should fail fuel pulses that are off by 6 us", func() {
		ecu := simecu.MakeBuilder().WithFuelError(6).Build()

		res, err := h.Run(context.Background(), s, ecu)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Verdict.Passed).To(BeFalse())
		Expect(res.Verdict.Reason).To(MatchRegexp(`fuel output on pin \d+ at time \d+`))
	})

	It("should reconcile a target clock that starts elsewhere", func() {
		ecu := simecu.MakeBuilder().WithClockOffset(123456).Build()

		res, err := h.Run(context.Background(), s, ecu)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Verdict.Passed).To(BeTrue(), res.Verdict.Reason)
		Expect(res.Mappings).To(HaveLen(1))
		Expect(res.Mappings[0].Domain).To(Equal(timing.TargetDomain))
		Expect(res.Mappings[0].Offset).To(BeEquivalentTo(123456))
		Expect(res.Mappings[0].Ratio).To(Equal(1.0))
	})

	It("should validate captured outputs when asked", func() {
		h = MakeBuilder().WithCaptureOutputs().Build()
		ecu := simecu.MakeBuilder().WithCapture(-777).Build()

		res, err := h.Run(context.Background(), s, ecu)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Verdict.Passed).To(BeTrue(), res.Verdict.Reason)
		Expect(res.Mappings).To(HaveLen(2))
		Expect(res.Mappings[1].Domain).To(Equal(timing.CaptureDomain))
	})

	It("should end a scenario that is still running", func() {
		running := scenario.New("running", decoder.MakeBuilder().Build())
		running.SetRPM(3000)
		Expect(running.WaitUntilCycle(4)).To(Succeed())

		res, err := h.Run(context.Background(), running, simecu.MakeBuilder().Build())

		Expect(err).NotTo(HaveOccurred())
		Expect(running.Ended()).To(BeTrue())
		Expect(res.Verdict.Passed).To(BeTrue(), res.Verdict.Reason)
	})

	It("should record runs", func() {
		db, err := sql.Open("sqlite3", ":memory:")
		Expect(err).NotTo(HaveOccurred())
		db.SetMaxOpenConns(1)
		defer db.Close()

		h = MakeBuilder().WithRecorder(recording.NewWithDB(db)).Build()

		res, err := h.Run(context.Background(), s, simecu.MakeBuilder().Build())
		Expect(err).NotTo(HaveOccurred())

		runs, err := recording.NewReaderWithDB(db).Runs(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].RunID).To(Equal(res.RunID))
		Expect(runs[0].Passed).To(BeTrue())
	})

	It("should report session failures", func() {
		session := NewMockSession(mockCtrl)
		session.EXPECT().
			Execute(gomock.Any(), s).
			Return(nil, errors.New("link down"))

		_, err := h.Run(context.Background(), s, session)

		Expect(err).To(MatchError(ContainSubstring("link down")))
	})

	It("should reject a target stream with a sequence gap", func() {
		session := NewMockSession(mockCtrl)
		session.EXPECT().
			Execute(gomock.Any(), s).
			Return(&target.Result{Messages: []target.Message{
				target.TriggerMessage(0, 1, 0),
				target.TriggerMessage(10, 3, 0),
			}}, nil)

		_, err := h.Run(context.Background(), s, session)

		Expect(err).To(MatchError(target.ErrSequenceGap))
	})

	It("should reject a target that missed a trigger", func() {
		res, err := simecu.MakeBuilder().Build().Execute(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())

		// Drop the first trigger and renumber the events after it.
		var msgs []target.Message
		dropped := false
		for _, m := range res.Messages {
			if m.Type == target.TypeEvent {
				if !dropped && m.Event.Type == target.EventTrigger {
					dropped = true
					continue
				}

				if dropped {
					m.Seq--
				}
			}

			msgs = append(msgs, m)
		}

		session := NewMockSession(mockCtrl)
		session.EXPECT().
			Execute(gomock.Any(), s).
			Return(&target.Result{Messages: msgs}, nil)

		_, err = h.Run(context.Background(), s, session)

		Expect(err).To(MatchError(align.ErrTriggerCountMismatch))
	})
})
