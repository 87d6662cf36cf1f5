package llm_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/synaptideco/synaptide/pkg/chat"
	"github.com/synaptideco/synaptide/pkg/llm"
)

var _ = Describe("History", func() {
	It("converts stored messages to wire messages in order", func() {
		now := time.Now()
		msgs := []*chat.Message{
			{ID: "m1", Role: chat.RoleUser, Content: "Hi", Timestamp: now},
			{ID: "m1_ai", Role: chat.RoleAssistant, Content: "Hello!", Timestamp: now.Add(time.Second)},
		}

		history := llm.History(msgs)

		Expect(history).To(Equal([]llm.ChatMessage{
			{Role: "user", Content: "Hi"},
			{Role: "assistant", Content: "Hello!"},
		}))
	})

	It("returns an empty slice for no messages", func() {
		Expect(llm.History(nil)).To(BeEmpty())
	})
})
