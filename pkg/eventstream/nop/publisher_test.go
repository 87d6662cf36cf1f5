package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/synaptideco/synaptide/pkg/eventstream"
	"github.com/synaptideco/synaptide/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	It("creates a non-nil publisher", func() {
		p := nop.NewPublisher()
		Expect(p).NotTo(BeNil())
	})

	It("returns ErrNilExchangeEvent for nil events", func() {
		p := nop.NewPublisher()
		err := p.PublishExchange(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilExchangeEvent))
	})

	It("succeeds for non-nil events", func() {
		p := nop.NewPublisher()
		err := p.PublishExchange(context.Background(), &eventstream.ExchangePersistedEvent{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("closes successfully", func() {
		p := nop.NewPublisher()
		Expect(p.Close()).To(Succeed())
	})
})
