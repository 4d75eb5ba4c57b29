package timing

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

type sampleEvent struct {
	EventBase
	label string
}

func newSampleEvent(t ScenarioTime, h Handler, label string) *sampleEvent {
	return &sampleEvent{EventBase: NewEventBase(t, h), label: label}
}

type recordingHook struct {
	before, after int
}

func (h *recordingHook) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosBeforeEvent:
		h.before++
	case HookPosAfterEvent:
		h.after++
	}
}

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		handler  *MockHandler
		engine   *SerialEngine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		handler = NewMockHandler(mockCtrl)
		engine = NewSerialEngine()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should handle events in time order", func() {
		evt1 := newSampleEvent(30, handler, "c")
		evt2 := newSampleEvent(10, handler, "a")
		evt3 := newSampleEvent(20, handler, "b")

		gomock.InOrder(
			handler.EXPECT().Handle(evt2),
			handler.EXPECT().Handle(evt3),
			handler.EXPECT().Handle(evt1),
		)

		engine.Schedule(evt1)
		engine.Schedule(evt2)
		engine.Schedule(evt3)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(ScenarioTime(30)))
		Expect(engine.Pending()).To(Equal(0))
	})

	It("should keep scheduling order for same-time events", func() {
		var labels []string
		for _, l := range []string{"x", "y", "z"} {
			evt := newSampleEvent(5, handler, l)
			engine.Schedule(evt)
		}

		handler.EXPECT().
			Handle(gomock.Any()).
			DoAndReturn(func(e Event) error {
				labels = append(labels, e.(*sampleEvent).label)
				return nil
			}).
			Times(3)

		Expect(engine.Run()).To(Succeed())
		Expect(labels).To(Equal([]string{"x", "y", "z"}))
	})

	It("should allow handlers to schedule future events", func() {
		first := newSampleEvent(10, handler, "first")
		second := newSampleEvent(15, handler, "second")

		handler.EXPECT().Handle(first).DoAndReturn(func(Event) error {
			engine.Schedule(second)
			return nil
		})
		handler.EXPECT().Handle(second)

		engine.Schedule(first)
		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(ScenarioTime(15)))
	})

	It("should stop at the first handler error", func() {
		failure := errors.New("boom")
		evt1 := newSampleEvent(1, handler, "a")
		evt2 := newSampleEvent(2, handler, "b")

		handler.EXPECT().Handle(evt1).Return(failure)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		err := engine.Run()
		Expect(err).To(MatchError(failure))
		Expect(engine.Pending()).To(Equal(1))
	})

	It("should panic when scheduling in the past", func() {
		evt := newSampleEvent(10, handler, "a")
		handler.EXPECT().Handle(evt)
		engine.Schedule(evt)
		Expect(engine.Run()).To(Succeed())

		Expect(func() {
			engine.Schedule(newSampleEvent(5, handler, "late"))
		}).To(Panic())
	})

	It("should invoke hooks around each event", func() {
		hook := &recordingHook{}
		engine.AcceptHook(hook)

		handler.EXPECT().Handle(gomock.Any()).Times(2)
		engine.Schedule(newSampleEvent(1, handler, "a"))
		engine.Schedule(newSampleEvent(2, handler, "b"))

		Expect(engine.Run()).To(Succeed())
		Expect(hook.before).To(Equal(2))
		Expect(hook.after).To(Equal(2))
		Expect(engine.NumHooks()).To(Equal(1))
	})
})
