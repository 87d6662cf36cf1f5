package chat

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Profile", func() {
	var (
		now     time.Time
		profile *Profile
	)

	BeforeEach(func() {
		now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})

	Describe("NewProfile", func() {
		It("applies defaults for missing fields", func() {
			profile = NewProfile("profile_1", "user_1", ProfileDelta{}, now)

			Expect(profile.Interests).To(BeEmpty())
			Expect(profile.CommunicationStyle).To(Equal(DefaultCommunicationStyle))
			Expect(profile.Preferences).To(BeEmpty())
			Expect(profile.Version).To(Equal(1))
			Expect(profile.LastUpdated).To(Equal(now))
		})

		It("seeds from the delta's fields", func() {
			profile = NewProfile("profile_1", "user_1", ProfileDelta{
				Interests:          []string{"jazz", "jazz", "hiking"},
				CommunicationStyle: "formal",
				Preferences:        map[string]string{"tone": "brief"},
			}, now)

			Expect(profile.Interests).To(Equal([]string{"jazz", "hiking"}))
			Expect(profile.CommunicationStyle).To(Equal("formal"))
			Expect(profile.Traits).To(Equal([]string{"formal"}))
			Expect(profile.Preferences).To(HaveKeyWithValue("tone", "brief"))
		})

		It("does not record a neutral style as a trait", func() {
			profile = NewProfile("profile_1", "user_1", ProfileDelta{
				CommunicationStyle: DefaultCommunicationStyle,
			}, now)

			Expect(profile.Traits).To(BeEmpty())
			Expect(profile.CommunicationStyle).To(Equal(DefaultCommunicationStyle))
		})
	})

	Describe("Merge", func() {
		BeforeEach(func() {
			profile = NewProfile("profile_1", "user_1", ProfileDelta{
				Interests:   []string{"jazz"},
				Preferences: map[string]string{"tone": "brief"},
			}, now)
		})

		It("unions interests without duplicates", func() {
			profile.Merge(ProfileDelta{Interests: []string{"jazz", "chess"}}, now.Add(time.Minute))

			Expect(profile.Interests).To(Equal([]string{"jazz", "chess"}))
		})

		It("deduplicates case-sensitively", func() {
			profile.Merge(ProfileDelta{Interests: []string{"Jazz"}}, now.Add(time.Minute))

			Expect(profile.Interests).To(ConsistOf("jazz", "Jazz"))
		})

		It("is idempotent on interests for a repeated delta", func() {
			delta := ProfileDelta{Interests: []string{"chess"}}
			profile.Merge(delta, now.Add(time.Minute))
			profile.Merge(delta, now.Add(2*time.Minute))

			Expect(profile.Interests).To(Equal([]string{"jazz", "chess"}))
		})

		It("shallow-merges preferences with incoming keys winning", func() {
			profile.Merge(ProfileDelta{
				Preferences: map[string]string{"tone": "verbose", "format": "lists"},
			}, now.Add(time.Minute))

			Expect(profile.Preferences).To(HaveKeyWithValue("tone", "verbose"))
			Expect(profile.Preferences).To(HaveKeyWithValue("format", "lists"))
		})

		It("increments version by exactly one per merge, even when nothing changes", func() {
			profile.Merge(ProfileDelta{}, now.Add(time.Minute))
			profile.Merge(ProfileDelta{}, now.Add(2*time.Minute))

			Expect(profile.Version).To(Equal(3))
		})

		It("advances lastUpdated on every merge", func() {
			later := now.Add(time.Hour)
			profile.Merge(ProfileDelta{}, later)

			Expect(profile.LastUpdated).To(Equal(later))
		})

		Context("communication style", func() {
			It("ignores an empty incoming style", func() {
				profile.Merge(ProfileDelta{}, now.Add(time.Minute))

				Expect(profile.CommunicationStyle).To(Equal(DefaultCommunicationStyle))
			})

			It("ignores an incoming neutral style", func() {
				profile.Merge(ProfileDelta{CommunicationStyle: "formal"}, now.Add(time.Minute))
				profile.Merge(ProfileDelta{CommunicationStyle: DefaultCommunicationStyle}, now.Add(2*time.Minute))

				Expect(profile.CommunicationStyle).To(Equal("formal"))
			})

			It("records each new style at the front of the trait list", func() {
				profile.Merge(ProfileDelta{CommunicationStyle: "formal"}, now.Add(time.Minute))
				profile.Merge(ProfileDelta{CommunicationStyle: "playful"}, now.Add(2*time.Minute))

				Expect(profile.CommunicationStyle).To(Equal("playful"))
				Expect(profile.Traits).To(Equal([]string{"playful", "formal"}))
			})

			It("keeps the trait list free of duplicates when the same style repeats", func() {
				profile.Merge(ProfileDelta{CommunicationStyle: "formal"}, now.Add(time.Minute))
				profile.Merge(ProfileDelta{CommunicationStyle: "formal"}, now.Add(2*time.Minute))

				Expect(profile.CommunicationStyle).To(Equal("formal"))
				Expect(profile.Traits).To(Equal([]string{"formal"}))
				// Version still advances on the replay.
				Expect(profile.Version).To(Equal(3))
			})
		})

		It("appends an audit revision per merge", func() {
			profile.Merge(ProfileDelta{Interests: []string{"chess"}}, now.Add(time.Minute))

			Expect(profile.History).To(HaveLen(1))
			Expect(profile.History[0].Timestamp).To(Equal(now.Add(time.Minute)))
			Expect(profile.History[0].Changes.Interests).To(Equal([]string{"jazz", "chess"}))
		})

		It("snapshots revisions so later merges do not mutate them", func() {
			profile.Merge(ProfileDelta{Interests: []string{"chess"}}, now.Add(time.Minute))
			profile.Merge(ProfileDelta{Interests: []string{"go"}}, now.Add(2*time.Minute))

			Expect(profile.History[0].Changes.Interests).To(Equal([]string{"jazz", "chess"}))
			Expect(profile.History[1].Changes.Interests).To(Equal([]string{"jazz", "chess", "go"}))
		})
	})
})
