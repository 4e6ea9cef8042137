package directory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/wandergram/wanderchat/internal/api"
	"go.uber.org/zap"
)

// PlaceholderAvatar is shown for contacts without a profile image.
const PlaceholderAvatar = "https://assets.wandergram.app/static/avatar-placeholder.png"

// Relationship tags how a contact relates to the current user. When the same
// person appears via multiple sources, the higher-priority tag wins.
type Relationship string

const (
	Mutual    Relationship = "mutual"
	Following Relationship = "following"
	Follower  Relationship = "follower"
	Sender    Relationship = "sender"
)

// priorities orders relationship kinds for merge tie-breaks and final sort.
var priorities = map[Relationship]int{
	Mutual:    0,
	Following: 1,
	Follower:  2,
	Sender:    3,
}

// Contact is one person the current user can message. Built once when the
// conversation screen mounts; not mutated afterward.
type Contact struct {
	ID           string
	DisplayName  string
	AvatarURL    string
	Relationship Relationship
}

// Source is the slice of the REST client the directory needs.
type Source interface {
	MessagingContacts(ctx context.Context) ([]api.ContactRecord, error)
	Following(ctx context.Context) ([]api.ContactRecord, error)
	Followers(ctx context.Context) ([]api.ContactRecord, error)
	Senders(ctx context.Context) ([]api.ContactRecord, error)
}

// Directory resolves the set of messageable contacts.
type Directory struct {
	src    Source
	logger *zap.Logger
}

// New creates a contact directory backed by the given source.
func New(src Source, logger *zap.Logger) *Directory {
	return &Directory{src: src, logger: logger}
}

// Build produces the ordered, deduplicated contact list. It prefers the
// consolidated messaging-contacts endpoint and falls back to three concurrent
// relationship queries, each of which degrades to an empty set on failure.
// Total failure yields an empty list, never an error: "no contacts" is a
// non-fatal state.
func (d *Directory) Build(ctx context.Context) []Contact {
	records, err := d.src.MessagingContacts(ctx)
	if err == nil {
		return merge(tagged(records, ""))
	}
	d.logger.Warn("consolidated contacts query failed, using fallback sources", zap.Error(err))

	var (
		wg        sync.WaitGroup
		following []api.ContactRecord
		followers []api.ContactRecord
		senders   []api.ContactRecord
	)
	fetch := func(dst *[]api.ContactRecord, name string, fn func(context.Context) ([]api.ContactRecord, error)) {
		defer wg.Done()
		records, err := fn(ctx)
		if err != nil {
			d.logger.Warn("contact source failed", zap.String("source", name), zap.Error(err))
			return
		}
		*dst = records
	}
	wg.Add(3)
	go fetch(&following, "following", d.src.Following)
	go fetch(&followers, "followers", d.src.Followers)
	go fetch(&senders, "senders", d.src.Senders)
	wg.Wait()

	var all []Contact
	all = append(all, tagged(following, Following)...)
	all = append(all, tagged(followers, Follower)...)
	all = append(all, tagged(senders, Sender)...)
	return merge(all)
}

// tagged normalizes wire records into contacts. When forced is empty the
// record's own RelationshipType is used (consolidated endpoint); otherwise
// every record is tagged with the source it came from.
func tagged(records []api.ContactRecord, forced Relationship) []Contact {
	contacts := make([]Contact, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		rel := forced
		if rel == "" {
			rel = parseRelationship(r.RelationshipType)
		}
		avatar := r.ProfileImage
		if avatar == "" {
			avatar = PlaceholderAvatar
		}
		contacts = append(contacts, Contact{
			ID:           r.ID.String(),
			DisplayName:  r.DisplayName(),
			AvatarURL:    avatar,
			Relationship: rel,
		})
	}
	return contacts
}

func parseRelationship(s string) Relationship {
	switch strings.ToLower(s) {
	case "mutual":
		return Mutual
	case "following":
		return Following
	case "follower":
		return Follower
	default:
		return Sender
	}
}

// merge deduplicates by id, keeping the highest-priority occurrence, then
// sorts by relationship priority with original order breaking ties.
func merge(contacts []Contact) []Contact {
	sort.SliceStable(contacts, func(i, j int) bool {
		return priorities[contacts[i].Relationship] < priorities[contacts[j].Relationship]
	})
	seen := make(map[string]bool, len(contacts))
	out := contacts[:0]
	for _, c := range contacts {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
