package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/synaptideco/synaptide/api"
	"github.com/synaptideco/synaptide/pkg/chat"
	"github.com/synaptideco/synaptide/pkg/conversation"
	"github.com/synaptideco/synaptide/pkg/eventstream/nop"
	"github.com/synaptideco/synaptide/pkg/llm"
	"github.com/synaptideco/synaptide/pkg/storage/inmemory"
)

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, history []llm.ChatMessage) (string, error) {
	return "echo: " + history[len(history)-1].Content, nil
}

func jsonRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(resp *http.Response, into any) {
	payload, err := io.ReadAll(resp.Body)
	Expect(err).ToNot(HaveOccurred())
	Expect(json.Unmarshal(payload, into)).To(Succeed())
}

var _ = Describe("Server", func() {
	var (
		server *api.Server
		store  *inmemory.Store
	)

	createUser := func(name string) *chat.User {
		resp, err := server.App().Test(jsonRequest(http.MethodPost, "/api/users", api.CreateUserRequest{Name: name}))
		Expect(err).ToNot(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var user chat.User
		decodeBody(resp, &user)
		return &user
	}

	sendMessage := func(userID, content string) *http.Response {
		resp, err := server.App().Test(jsonRequest(
			http.MethodPost,
			fmt.Sprintf("/api/users/%s/messages", userID),
			api.SendMessageRequest{Content: content},
		))
		Expect(err).ToNot(HaveOccurred())
		return resp
	}

	BeforeEach(func() {
		store = inmemory.NewStore()
		service := conversation.NewService(store, echoGenerator{}, nil, nop.NewPublisher(), zap.NewNop())
		server = api.NewServer(api.Config{ListenAddr: ":0"}, store, service, zap.NewNop())
	})

	Describe("GET /ping", func() {
		It("responds with pong", func() {
			resp, err := server.App().Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("POST /api/users", func() {
		It("creates a user and returns it", func() {
			user := createUser("alice")
			Expect(user.ID).ToNot(BeEmpty())
			Expect(user.Name).To(Equal("alice"))
		})

		It("returns the same user for a repeated name", func() {
			first := createUser("alice")
			second := createUser("alice")
			Expect(second.ID).To(Equal(first.ID))
		})

		It("rejects an empty name", func() {
			resp, err := server.App().Test(jsonRequest(http.MethodPost, "/api/users", api.CreateUserRequest{}))
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/users", func() {
		It("finds an existing user by name", func() {
			created := createUser("alice")

			resp, err := server.App().Test(httptest.NewRequest(http.MethodGet, "/api/users?name=alice", nil))
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var user chat.User
			decodeBody(resp, &user)
			Expect(user.ID).To(Equal(created.ID))
		})

		It("returns 404 for an unknown name", func() {
			resp, err := server.App().Test(httptest.NewRequest(http.MethodGet, "/api/users?name=nobody", nil))
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("requires the name parameter", func() {
			resp, err := server.App().Test(httptest.NewRequest(http.MethodGet, "/api/users", nil))
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /api/users/:userID/messages", func() {
		It("returns the generated reply with 201", func() {
			user := createUser("alice")

			resp := sendMessage(user.ID, "hello")
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var reply chat.Message
			decodeBody(resp, &reply)
			Expect(reply.Content).To(Equal("echo: hello"))
			Expect(reply.Role).To(Equal(chat.RoleAssistant))
			Expect(reply.UserID).To(Equal(user.ID))
		})

		It("persists both halves of the exchange", func() {
			user := createUser("alice")
			Expect(sendMessage(user.ID, "hello").StatusCode).To(Equal(http.StatusCreated))

			msgs, err := store.ListMessages(context.Background(), user.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Content).To(Equal("hello"))
			Expect(msgs[0].Role).To(Equal(chat.RoleUser))
			Expect(msgs[1].Content).To(Equal("echo: hello"))
		})

		It("rejects empty content", func() {
			user := createUser("alice")

			resp := sendMessage(user.ID, "  ")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/users/:userID/messages", func() {
		It("returns the history oldest first", func() {
			user := createUser("alice")
			Expect(sendMessage(user.ID, "first").StatusCode).To(Equal(http.StatusCreated))
			Expect(sendMessage(user.ID, "second").StatusCode).To(Equal(http.StatusCreated))

			resp, err := server.App().Test(httptest.NewRequest(
				http.MethodGet, fmt.Sprintf("/api/users/%s/messages", user.ID), nil))
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body api.MessagesResponse
			decodeBody(resp, &body)
			Expect(body.Count).To(Equal(4))
			Expect(body.Messages[0].Content).To(Equal("first"))
			Expect(body.Messages[1].Content).To(Equal("echo: first"))
			Expect(body.Messages[2].Content).To(Equal("second"))
		})

		It("returns an empty history for a user with no messages", func() {
			user := createUser("alice")

			resp, err := server.App().Test(httptest.NewRequest(
				http.MethodGet, fmt.Sprintf("/api/users/%s/messages", user.ID), nil))
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body api.MessagesResponse
			decodeBody(resp, &body)
			Expect(body.Count).To(BeZero())
		})
	})

	Describe("DELETE /api/users/:userID/messages", func() {
		It("clears the history and confirms with 200", func() {
			user := createUser("alice")
			Expect(sendMessage(user.ID, "hello").StatusCode).To(Equal(http.StatusCreated))

			resp, err := server.App().Test(httptest.NewRequest(
				http.MethodDelete, fmt.Sprintf("/api/users/%s/messages", user.ID), nil))
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var confirmation map[string]any
			decodeBody(resp, &confirmation)
			Expect(confirmation).To(HaveKey("message"))

			listResp, err := server.App().Test(httptest.NewRequest(
				http.MethodGet, fmt.Sprintf("/api/users/%s/messages", user.ID), nil))
			Expect(err).ToNot(HaveOccurred())

			var body api.MessagesResponse
			decodeBody(listResp, &body)
			Expect(body.Count).To(BeZero())
		})
	})

	Describe("GET /api/users/:userID/profile", func() {
		It("returns a default profile before any analysis", func() {
			user := createUser("alice")

			resp, err := server.App().Test(httptest.NewRequest(
				http.MethodGet, fmt.Sprintf("/api/users/%s/profile", user.ID), nil))
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var profile chat.Profile
			decodeBody(resp, &profile)
			Expect(profile.UserID).To(Equal(user.ID))
			Expect(profile.Interests).To(BeEmpty())
			Expect(profile.CommunicationStyle).To(Equal(chat.DefaultCommunicationStyle))
			Expect(profile.Version).To(BeZero())
		})

		It("returns the stored profile once one exists", func() {
			user := createUser("alice")
			_, err := store.MergeProfile(context.Background(), user.ID, chat.ProfileDelta{
				Interests:          []string{"jazz"},
				CommunicationStyle: "casual",
			})
			Expect(err).ToNot(HaveOccurred())

			resp, err := server.App().Test(httptest.NewRequest(
				http.MethodGet, fmt.Sprintf("/api/users/%s/profile", user.ID), nil))
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var profile chat.Profile
			decodeBody(resp, &profile)
			Expect(profile.Interests).To(Equal([]string{"jazz"}))
			Expect(profile.CommunicationStyle).To(Equal("casual"))
			Expect(profile.Version).To(Equal(1))
		})
	})
})
